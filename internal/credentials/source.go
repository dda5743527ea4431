package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	sourceSeparatorConstant            = ":"
	environmentSourceTypeValueConstant = "env"
	fileSourceTypeValueConstant        = "file"
	gitLabTokenSecretValueConstant     = "gitlab token"
	mailPasswordSecretValueConstant    = "mail password"
	sourceRequiredMessageConstant      = "a source such as env:NAME or file:/path is required"
	environmentNameRequiredMessage     = "environment variable name is required"
	filePathRequiredMessageConstant    = "file path is required"
	unsupportedSourceTypeTemplate      = "unsupported source type %q"
	invalidSourceErrorTemplateConstant = "invalid %s source %q: %s"
	missingSecretErrorTemplateConstant = "%s missing: %s"
	unreadableSecretErrorTemplate      = "unable to read %s from %s: %w"
	environmentUnsetDetailTemplate     = "environment variable %s is not set"
	environmentBlankDetailTemplate     = "environment variable %s is blank"
	fileBlankDetailTemplateConstant    = "file %s is empty"
	sourceDescriptionTemplateConstant  = "%s from %s"
	unnamedSecretDescriptionConstant   = "secret"
	credentialMissingSentinelMessage   = "credential missing"
)

// ErrCredentialMissing indicates that a configured source yielded no secret.
var ErrCredentialMissing = errors.New(credentialMissingSentinelMessage)

// Secret names the credential a source provides.
type Secret string

// Secrets consumed by the check command.
const (
	SecretGitLabToken  Secret = Secret(gitLabTokenSecretValueConstant)
	SecretMailPassword Secret = Secret(mailPasswordSecretValueConstant)
)

func (secret Secret) describe() string {
	if len(secret) == 0 {
		return unnamedSecretDescriptionConstant
	}
	return string(secret)
}

// SourceType enumerates the supported secret retrieval mechanisms.
type SourceType string

// Source type enumerations.
const (
	SourceTypeEnvironment SourceType = SourceType(environmentSourceTypeValueConstant)
	SourceTypeFile        SourceType = SourceType(fileSourceTypeValueConstant)
)

// Source locates one named secret.
type Source struct {
	Secret    Secret
	Type      SourceType
	Reference string
}

// String renders the source back into its declarative form.
func (source Source) String() string {
	return string(source.Type) + sourceSeparatorConstant + source.Reference
}

// Describe names the secret and where it comes from, for example "gitlab token from env:GITLAB_PRIVATE_TOKEN".
func (source Source) Describe() string {
	return fmt.Sprintf(sourceDescriptionTemplateConstant, source.Secret.describe(), source.String())
}

// InvalidSourceError reports a source declaration that cannot be parsed.
type InvalidSourceError struct {
	Secret  Secret
	Value   string
	Message string
}

// Error describes the invalid declaration.
func (sourceError InvalidSourceError) Error() string {
	return fmt.Sprintf(invalidSourceErrorTemplateConstant, sourceError.Secret.describe(), sourceError.Value, sourceError.Message)
}

// MissingSecretError reports a source that resolved to nothing. It matches ErrCredentialMissing.
type MissingSecretError struct {
	Source Source
	Detail string
}

// Error names the missing secret and the reason.
func (missingError MissingSecretError) Error() string {
	return fmt.Sprintf(missingSecretErrorTemplateConstant, missingError.Source.Secret.describe(), missingError.Detail)
}

// Is matches ErrCredentialMissing.
func (missingError MissingSecretError) Is(target error) bool {
	return target == ErrCredentialMissing
}

// ParseSource interprets env:NAME, file:/path, or a bare environment variable name as the source of secret.
func ParseSource(secret Secret, sourceValue string) (Source, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	invalid := func(message string) (Source, error) {
		return Source{}, InvalidSourceError{Secret: secret, Value: trimmedValue, Message: message}
	}
	if len(trimmedValue) == 0 {
		return invalid(sourceRequiredMessageConstant)
	}

	sourceTypeText, reference, hasSeparator := strings.Cut(trimmedValue, sourceSeparatorConstant)
	if !hasSeparator {
		return Source{Secret: secret, Type: SourceTypeEnvironment, Reference: trimmedValue}, nil
	}
	reference = strings.TrimSpace(reference)

	switch SourceType(strings.ToLower(strings.TrimSpace(sourceTypeText))) {
	case SourceTypeEnvironment:
		if len(reference) == 0 {
			return invalid(environmentNameRequiredMessage)
		}
		return Source{Secret: secret, Type: SourceTypeEnvironment, Reference: reference}, nil
	case SourceTypeFile:
		if len(reference) == 0 {
			return invalid(filePathRequiredMessageConstant)
		}
		return Source{Secret: secret, Type: SourceTypeFile, Reference: reference}, nil
	default:
		return invalid(fmt.Sprintf(unsupportedSourceTypeTemplate, sourceTypeText))
	}
}

// Resolver retrieves secrets from configured sources.
type Resolver interface {
	Resolve(resolutionContext context.Context, source Source) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewResolver creates a resolver. Nil collaborators select os.LookupEnv and os.ReadFile.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader) Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &resolver{environmentLookup: environmentLookup, fileReader: fileReader}
}

type resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

// Resolve returns the trimmed secret. Unset variables, blank values, and empty files yield a MissingSecretError.
func (resolver *resolver) Resolve(resolutionContext context.Context, source Source) (string, error) {
	if resolutionContext != nil {
		if contextError := resolutionContext.Err(); contextError != nil {
			return "", contextError
		}
	}

	switch source.Type {
	case SourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		if !found {
			return "", MissingSecretError{Source: source, Detail: fmt.Sprintf(environmentUnsetDetailTemplate, source.Reference)}
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) == 0 {
			return "", MissingSecretError{Source: source, Detail: fmt.Sprintf(environmentBlankDetailTemplate, source.Reference)}
		}
		return trimmedValue, nil
	case SourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(unreadableSecretErrorTemplate, source.Secret.describe(), source.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", MissingSecretError{Source: source, Detail: fmt.Sprintf(fileBlankDetailTemplateConstant, source.Reference)}
		}
		return trimmedValue, nil
	default:
		return "", InvalidSourceError{Secret: source.Secret, Value: source.String(), Message: fmt.Sprintf(unsupportedSourceTypeTemplate, source.Type)}
	}
}
