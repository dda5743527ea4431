package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configurationCommandUseConstant              = "config"
	configurationCommandShortDescriptionConstant = "Print the resolved configuration"
	configurationCommandLongDescriptionConstant  = "config prints the configuration after merging embedded defaults, the configuration file, environment variables, and persistent flags."
	configurationUnexpectedArgumentsMessage      = "config does not accept positional arguments"
	configurationEncodeErrorTemplateConstant     = "unable to encode configuration: %w"
	configurationYAMLIndentConstant              = 2
	redactedPasswordConstant                     = "xxxxx"
)

// ConfigurationCommandBuilder assembles the command that prints the resolved configuration.
type ConfigurationCommandBuilder struct {
	ConfigurationProvider func() ApplicationConfiguration
}

// Build constructs the config command.
func (builder *ConfigurationCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   configurationCommandUseConstant,
		Short: configurationCommandShortDescriptionConstant,
		Long:  configurationCommandLongDescriptionConstant,
		RunE:  builder.run,
	}, nil
}

func (builder *ConfigurationCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(configurationUnexpectedArgumentsMessage)
	}

	configuration := ApplicationConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(configurationYAMLIndentConstant)
	if encodeError := encoder.Encode(redactConfiguration(configuration)); encodeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplateConstant, encodeError)
	}
	return encoder.Close()
}

// redactConfiguration hides credentials embedded in the GitLab URL. Token and password settings hold
// source references rather than secret values and are printed unchanged.
func redactConfiguration(configuration ApplicationConfiguration) ApplicationConfiguration {
	redacted := configuration
	redacted.GitLab.BaseURL = redactURLCredentials(configuration.GitLab.BaseURL)
	return redacted
}

func redactURLCredentials(rawURL string) string {
	trimmedURL := strings.TrimSpace(rawURL)
	if len(trimmedURL) == 0 {
		return trimmedURL
	}
	parsedURL, parseError := url.Parse(trimmedURL)
	if parseError != nil || parsedURL.User == nil {
		return trimmedURL
	}
	if _, hasPassword := parsedURL.User.Password(); hasPassword {
		parsedURL.User = url.UserPassword(parsedURL.User.Username(), redactedPasswordConstant)
	}
	return parsedURL.String()
}
