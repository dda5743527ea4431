package audit

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tokenwatch/internal/credentials"
	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/gitlab"
	"github.com/temirov/tokenwatch/internal/metrics"
	"github.com/temirov/tokenwatch/internal/notify"
	"github.com/temirov/tokenwatch/internal/utils/flags"
)

const (
	commandUseConstant                      = "check"
	commandShortDescriptionConstant         = "Audit GitLab personal access token expiry"
	commandLongDescriptionConstant          = "check fetches the personal access tokens visible to the configured credential, classifies each by expiry, writes an HTML report, and emails it."
	unexpectedArgumentsErrorMessageConstant = "check does not accept positional arguments"
	commandExecutionErrorTemplateConstant   = "check failed: %w"
	baseURLFlagNameConstant                 = "base-url"
	baseURLFlagDescriptionConstant          = "GitLab instance URL, for example https://gitlab.example.com"
	tokenSourceFlagNameConstant             = "token-source"
	tokenSourceFlagDescriptionConstant      = "GitLab token source (env:NAME or file:/path)"
	thresholdDaysFlagNameConstant           = "threshold-days"
	thresholdDaysFlagDescriptionConstant    = "Tokens expiring within this many days are flagged"
	reportPathFlagNameConstant              = "report-path"
	reportPathFlagDescriptionConstant       = "Destination of the HTML report"
	invalidPolicyFlagNameConstant           = "invalid-expiry-policy"
	invalidPolicyFlagDescriptionConstant    = "Handling of unparseable expiry dates"
	skipEmailFlagNameConstant               = "skip-email"
	skipEmailFlagDescriptionConstant        = "Write the report without emailing it"
	metricsTextfileFlagNameConstant         = "metrics-textfile"
	metricsTextfileFlagDescriptionConstant  = "Write Prometheus run metrics to this textfile"
	baseURLRequiredMessageConstant          = "gitlab base URL must be configured (gitlab.base_url or --base-url)"
	negativeThresholdMessageConstant        = "threshold days must not be negative"
	mailUsernameRequiredMessageConstant     = "mail username must be configured unless --skip-email is set"
	mailRecipientRequiredMessageConstant    = "mail recipient must be configured unless --skip-email is set"
	credentialResolutionLogMessageConstant  = "resolving credential"
	logFieldCredentialSourceConstant        = "credential_source"
	policyParseErrorTemplateConstant        = "invalid expiry policy: %w"
)

var invalidExpiryPolicyChoices = flags.NewChoiceSet(
	string(expiry.InvalidExpiryPolicyAbort),
	string(expiry.InvalidExpiryPolicyAbort),
	string(expiry.InvalidExpiryPolicyReport),
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current check configuration.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the check cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            gitlab.HTTPClient
	EnvironmentLookup     credentials.EnvironmentLookup
	FileReader            credentials.FileReader
	CredentialResolver    credentials.Resolver
	TokenListerFactory    TokenListerFactory
	NotifierFactory       NotifierFactory
	MetricsRecorder       MetricsRecorder
	Clock                 Clock
}

// Build constructs the cobra command for token expiry checks.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(baseURLFlagNameConstant, "", baseURLFlagDescriptionConstant)
	command.Flags().String(tokenSourceFlagNameConstant, "", tokenSourceFlagDescriptionConstant)
	command.Flags().Int(thresholdDaysFlagNameConstant, defaultThresholdDaysConstant, thresholdDaysFlagDescriptionConstant)
	command.Flags().String(reportPathFlagNameConstant, "", reportPathFlagDescriptionConstant)
	command.Flags().String(invalidPolicyFlagNameConstant, "", invalidExpiryPolicyChoices.Usage(invalidPolicyFlagDescriptionConstant))
	command.Flags().Bool(skipEmailFlagNameConstant, false, skipEmailFlagDescriptionConstant)
	command.Flags().String(metricsTextfileFlagNameConstant, "", metricsTextfileFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	credentialResolver := builder.resolveCredentialResolver()

	logger.Debug(credentialResolutionLogMessageConstant, zap.String(logFieldCredentialSourceConstant, options.TokenSource.Describe()))
	gitLabToken, tokenError := credentialResolver.Resolve(command.Context(), options.TokenSource)
	if tokenError != nil {
		return tokenError
	}

	tokenLister, listerError := builder.resolveTokenListerFactory()(gitlab.ClientConfiguration{
		BaseURL: options.BaseURL,
		Token:   gitLabToken,
		Timeout: options.RequestTimeout,
	}, builder.HTTPClient)
	if listerError != nil {
		return listerError
	}

	var notifier Notifier
	if !options.SkipEmail {
		logger.Debug(credentialResolutionLogMessageConstant, zap.String(logFieldCredentialSourceConstant, options.MailPasswordSource.Describe()))
		mailPassword, passwordError := credentialResolver.Resolve(command.Context(), options.MailPasswordSource)
		if passwordError != nil {
			return passwordError
		}
		mailConfiguration := options.Mail
		mailConfiguration.Password = mailPassword

		resolvedNotifier, notifierError := builder.resolveNotifierFactory()(mailConfiguration, logger)
		if notifierError != nil {
			return notifierError
		}
		notifier = resolvedNotifier
	}

	service, serviceError := NewService(ServiceDependencies{
		TokenLister:     tokenLister,
		Notifier:        notifier,
		MetricsRecorder: builder.resolveMetricsRecorder(options),
		OutputWriter:    command.OutOrStdout(),
		ErrorWriter:     command.ErrOrStderr(),
		Logger:          logger,
		Clock:           builder.Clock,
	})
	if serviceError != nil {
		return serviceError
	}

	if _, runError := service.Run(command.Context(), options); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (Options, error) {
	configuration := builder.resolveConfiguration()

	baseURLFlagValue, baseURLFlagError := command.Flags().GetString(baseURLFlagNameConstant)
	if baseURLFlagError != nil {
		return Options{}, baseURLFlagError
	}
	baseURLValue := selectStringValue(baseURLFlagValue, configuration.GitLab.BaseURL)
	if len(baseURLValue) == 0 {
		return Options{}, errors.New(baseURLRequiredMessageConstant)
	}

	tokenSourceFlagValue, tokenSourceFlagError := command.Flags().GetString(tokenSourceFlagNameConstant)
	if tokenSourceFlagError != nil {
		return Options{}, tokenSourceFlagError
	}
	tokenSource, tokenSourceParseError := credentials.ParseSource(credentials.SecretGitLabToken, selectStringValue(tokenSourceFlagValue, configuration.GitLab.TokenSource))
	if tokenSourceParseError != nil {
		return Options{}, tokenSourceParseError
	}

	thresholdDaysValue := configuration.Report.ThresholdDays
	if command.Flags().Changed(thresholdDaysFlagNameConstant) {
		thresholdDaysFlagValue, thresholdDaysFlagError := command.Flags().GetInt(thresholdDaysFlagNameConstant)
		if thresholdDaysFlagError != nil {
			return Options{}, thresholdDaysFlagError
		}
		thresholdDaysValue = thresholdDaysFlagValue
	}
	if thresholdDaysValue < 0 {
		return Options{}, errors.New(negativeThresholdMessageConstant)
	}

	reportPathFlagValue, reportPathFlagError := command.Flags().GetString(reportPathFlagNameConstant)
	if reportPathFlagError != nil {
		return Options{}, reportPathFlagError
	}

	policyFlagValue, policyFlagError := command.Flags().GetString(invalidPolicyFlagNameConstant)
	if policyFlagError != nil {
		return Options{}, policyFlagError
	}
	invalidExpiryPolicy, policyParseError := expiry.ParseInvalidExpiryPolicy(selectStringValue(policyFlagValue, configuration.Report.InvalidExpiryPolicy))
	if policyParseError != nil {
		return Options{}, fmt.Errorf(policyParseErrorTemplateConstant, policyParseError)
	}

	skipEmailValue := false
	if command.Flags().Changed(skipEmailFlagNameConstant) {
		skipEmailFlagValue, skipEmailFlagError := command.Flags().GetBool(skipEmailFlagNameConstant)
		if skipEmailFlagError != nil {
			return Options{}, skipEmailFlagError
		}
		skipEmailValue = skipEmailFlagValue
	}

	metricsTextfileFlagValue, metricsTextfileFlagError := command.Flags().GetString(metricsTextfileFlagNameConstant)
	if metricsTextfileFlagError != nil {
		return Options{}, metricsTextfileFlagError
	}

	options := Options{
		BaseURL:             baseURLValue,
		TokenSource:         tokenSource,
		RequestTimeout:      configuration.GitLab.Timeout,
		ReportPath:          selectStringValue(reportPathFlagValue, configuration.Report.Path),
		ThresholdDays:       thresholdDaysValue,
		InvalidExpiryPolicy: invalidExpiryPolicy,
		SkipEmail:           skipEmailValue,
		MetricsTextfilePath: selectStringValue(metricsTextfileFlagValue, configuration.Metrics.TextfilePath),
	}

	if skipEmailValue {
		return options, nil
	}

	if len(configuration.Mail.Username) == 0 {
		return Options{}, errors.New(mailUsernameRequiredMessageConstant)
	}
	if len(configuration.Mail.Recipient) == 0 {
		return Options{}, errors.New(mailRecipientRequiredMessageConstant)
	}

	mailPasswordSource, passwordSourceParseError := credentials.ParseSource(credentials.SecretMailPassword, configuration.Mail.PasswordSource)
	if passwordSourceParseError != nil {
		return Options{}, passwordSourceParseError
	}

	options.Mail = notify.Configuration{
		Host:               configuration.Mail.Host,
		Port:               configuration.Mail.Port,
		Username:           configuration.Mail.Username,
		Sender:             configuration.Mail.Sender,
		Recipient:          configuration.Mail.Recipient,
		Subject:            configuration.Mail.Subject,
		InsecureSkipVerify: configuration.Mail.InsecureSkipVerify,
	}
	options.MailPasswordSource = mailPasswordSource

	return options, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.sanitize()
}

func (builder *CommandBuilder) resolveCredentialResolver() credentials.Resolver {
	if builder.CredentialResolver != nil {
		return builder.CredentialResolver
	}
	return credentials.NewResolver(builder.EnvironmentLookup, builder.FileReader)
}

func (builder *CommandBuilder) resolveTokenListerFactory() TokenListerFactory {
	if builder.TokenListerFactory != nil {
		return builder.TokenListerFactory
	}
	return defaultTokenListerFactory
}

func (builder *CommandBuilder) resolveNotifierFactory() NotifierFactory {
	if builder.NotifierFactory != nil {
		return builder.NotifierFactory
	}
	return defaultNotifierFactory
}

func (builder *CommandBuilder) resolveMetricsRecorder(options Options) MetricsRecorder {
	if builder.MetricsRecorder != nil {
		return builder.MetricsRecorder
	}
	if len(options.MetricsTextfilePath) == 0 {
		return nil
	}
	return metrics.NewRecorder()
}
