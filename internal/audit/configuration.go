package audit

import (
	"strings"
	"time"

	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/notify"
)

const (
	defaultTokenSourceValueConstant        = "env:GITLAB_PRIVATE_TOKEN"
	defaultPasswordSourceValueConstant     = "env:SMTP_PASSWORD"
	defaultRequestTimeoutConstant          = 30 * time.Second
	defaultReportPathConstant              = "gitlab_token_expiration_report.html"
	defaultThresholdDaysConstant           = 30
	defaultMailHostConstant                = "smtp.office365.com"
	defaultMailPortConstant                = 587
	gitLabBaseURLConfigKeySuffixConstant   = "gitlab.base_url"
	gitLabTokenSourceConfigKeySuffix       = "gitlab.token_source"
	gitLabTimeoutConfigKeySuffixConstant   = "gitlab.timeout"
	reportPathConfigKeySuffixConstant      = "report.path"
	reportThresholdConfigKeySuffix         = "report.threshold_days"
	reportPolicyConfigKeySuffixConstant    = "report.invalid_expiry_policy"
	mailHostConfigKeySuffixConstant        = "mail.host"
	mailPortConfigKeySuffixConstant        = "mail.port"
	mailUsernameConfigKeySuffixConstant    = "mail.username"
	mailPasswordSourceConfigKeySuffix      = "mail.password_source"
	mailSenderConfigKeySuffixConstant      = "mail.sender"
	mailRecipientConfigKeySuffixConstant   = "mail.recipient"
	mailSubjectConfigKeySuffixConstant     = "mail.subject"
	mailInsecureConfigKeySuffixConstant    = "mail.insecure_skip_verify"
	metricsTextfileConfigKeySuffixConstant = "metrics.textfile_path"
	configurationKeySeparatorConstant      = "."
)

// Configuration captures persistent settings for the check command.
type Configuration struct {
	GitLab  GitLabConfiguration  `mapstructure:"gitlab" yaml:"gitlab"`
	Report  ReportConfiguration  `mapstructure:"report" yaml:"report"`
	Mail    MailConfiguration    `mapstructure:"mail" yaml:"mail"`
	Metrics MetricsConfiguration `mapstructure:"metrics" yaml:"metrics"`
}

// GitLabConfiguration describes the GitLab instance to audit.
type GitLabConfiguration struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	TokenSource string        `mapstructure:"token_source" yaml:"token_source"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ReportConfiguration describes the report artifact and classification thresholds.
type ReportConfiguration struct {
	Path                string `mapstructure:"path" yaml:"path"`
	ThresholdDays       int    `mapstructure:"threshold_days" yaml:"threshold_days"`
	InvalidExpiryPolicy string `mapstructure:"invalid_expiry_policy" yaml:"invalid_expiry_policy"`
}

// MailConfiguration describes the SMTP relay used to deliver the report.
type MailConfiguration struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	Username           string `mapstructure:"username" yaml:"username"`
	PasswordSource     string `mapstructure:"password_source" yaml:"password_source"`
	Sender             string `mapstructure:"sender" yaml:"sender"`
	Recipient          string `mapstructure:"recipient" yaml:"recipient"`
	Subject            string `mapstructure:"subject" yaml:"subject"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// MetricsConfiguration describes the optional Prometheus textfile export.
type MetricsConfiguration struct {
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"`
}

// DefaultConfiguration returns baseline configuration values for the check command.
func DefaultConfiguration() Configuration {
	return Configuration{
		GitLab: GitLabConfiguration{
			TokenSource: defaultTokenSourceValueConstant,
			Timeout:     defaultRequestTimeoutConstant,
		},
		Report: ReportConfiguration{
			Path:                defaultReportPathConstant,
			ThresholdDays:       defaultThresholdDaysConstant,
			InvalidExpiryPolicy: string(expiry.InvalidExpiryPolicyAbort),
		},
		Mail: MailConfiguration{
			Host:           defaultMailHostConstant,
			Port:           defaultMailPortConstant,
			PasswordSource: defaultPasswordSourceValueConstant,
			Subject:        notify.DefaultSubject,
		},
	}
}

// DefaultConfigurationValues exposes the defaults keyed by configuration path under the provided prefix.
// Every key is listed so environment overrides apply even when no file sets it.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	values := map[string]any{
		gitLabBaseURLConfigKeySuffixConstant:   defaults.GitLab.BaseURL,
		gitLabTokenSourceConfigKeySuffix:       defaults.GitLab.TokenSource,
		gitLabTimeoutConfigKeySuffixConstant:   defaults.GitLab.Timeout.String(),
		reportPathConfigKeySuffixConstant:      defaults.Report.Path,
		reportThresholdConfigKeySuffix:         defaults.Report.ThresholdDays,
		reportPolicyConfigKeySuffixConstant:    defaults.Report.InvalidExpiryPolicy,
		mailHostConfigKeySuffixConstant:        defaults.Mail.Host,
		mailPortConfigKeySuffixConstant:        defaults.Mail.Port,
		mailUsernameConfigKeySuffixConstant:    defaults.Mail.Username,
		mailPasswordSourceConfigKeySuffix:      defaults.Mail.PasswordSource,
		mailSenderConfigKeySuffixConstant:      defaults.Mail.Sender,
		mailRecipientConfigKeySuffixConstant:   defaults.Mail.Recipient,
		mailSubjectConfigKeySuffixConstant:     defaults.Mail.Subject,
		mailInsecureConfigKeySuffixConstant:    defaults.Mail.InsecureSkipVerify,
		metricsTextfileConfigKeySuffixConstant: defaults.Metrics.TextfilePath,
	}

	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), configurationKeySeparatorConstant)
	if len(trimmedPrefix) == 0 {
		return values
	}

	prefixedValues := make(map[string]any, len(values))
	for key, value := range values {
		prefixedValues[trimmedPrefix+configurationKeySeparatorConstant+key] = value
	}
	return prefixedValues
}

// sanitize trims whitespace and restores defaults for unset values.
func (configuration Configuration) sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.GitLab.BaseURL = strings.TrimSpace(configuration.GitLab.BaseURL)
	sanitized.GitLab.TokenSource = selectStringValue(configuration.GitLab.TokenSource, defaults.GitLab.TokenSource)
	if sanitized.GitLab.Timeout <= 0 {
		sanitized.GitLab.Timeout = defaults.GitLab.Timeout
	}

	sanitized.Report.Path = selectStringValue(configuration.Report.Path, defaults.Report.Path)
	sanitized.Report.InvalidExpiryPolicy = selectStringValue(configuration.Report.InvalidExpiryPolicy, defaults.Report.InvalidExpiryPolicy)

	sanitized.Mail.Host = selectStringValue(configuration.Mail.Host, defaults.Mail.Host)
	if sanitized.Mail.Port <= 0 {
		sanitized.Mail.Port = defaults.Mail.Port
	}
	sanitized.Mail.Username = strings.TrimSpace(configuration.Mail.Username)
	sanitized.Mail.PasswordSource = selectStringValue(configuration.Mail.PasswordSource, defaults.Mail.PasswordSource)
	sanitized.Mail.Sender = selectStringValue(configuration.Mail.Sender, sanitized.Mail.Username)
	sanitized.Mail.Recipient = strings.TrimSpace(configuration.Mail.Recipient)
	sanitized.Mail.Subject = selectStringValue(configuration.Mail.Subject, defaults.Mail.Subject)

	sanitized.Metrics.TextfilePath = strings.TrimSpace(configuration.Metrics.TextfilePath)

	return sanitized
}

func selectStringValue(primaryValue string, fallbackValue string) string {
	trimmedPrimaryValue := strings.TrimSpace(primaryValue)
	if len(trimmedPrimaryValue) > 0 {
		return trimmedPrimaryValue
	}
	return strings.TrimSpace(fallbackValue)
}
