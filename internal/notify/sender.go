package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	// DefaultSubject is used when no subject is configured.
	DefaultSubject                    = "GitLab Token Expiry Report"
	fromHeaderConstant                = "From"
	toHeaderConstant                  = "To"
	subjectHeaderConstant             = "Subject"
	htmlContentTypeConstant           = "text/html"
	hostFieldNameConstant             = "host"
	portFieldNameConstant             = "port"
	recipientFieldNameConstant        = "recipient"
	senderFieldNameConstant           = "sender"
	requiredValueMessageConstant      = "value required"
	invalidPortMessageConstant        = "must be between 1 and 65535"
	invalidInputErrorTemplateConstant = "mail %s: %s"
	deliveryErrorTemplateConstant     = "unable to deliver report to %s: %w"
	maximumPortConstant               = 65535
	logMessageSendingConstant         = "sending report email"
	logMessageInsecureTLSConstant     = "mail TLS verification disabled"
	logFieldHostConstant              = "smtp_host"
	logFieldPortConstant              = "smtp_port"
	logFieldRecipientConstant         = "recipient"
	logFieldSubjectConstant           = "subject"
)

// InvalidInputError surfaces mail configuration problems.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// Configuration describes the SMTP relay and envelope of the report email.
type Configuration struct {
	Host               string
	Port               int
	Username           string
	Password           string
	Sender             string
	Recipient          string
	Subject            string
	InsecureSkipVerify bool
}

// Validate reports the first missing or malformed field.
func (configuration Configuration) Validate() error {
	if len(strings.TrimSpace(configuration.Host)) == 0 {
		return InvalidInputError{FieldName: hostFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if configuration.Port <= 0 || configuration.Port > maximumPortConstant {
		return InvalidInputError{FieldName: portFieldNameConstant, Message: invalidPortMessageConstant}
	}
	if len(strings.TrimSpace(configuration.Recipient)) == 0 {
		return InvalidInputError{FieldName: recipientFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(configuration.senderAddress()) == 0 {
		return InvalidInputError{FieldName: senderFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

func (configuration Configuration) senderAddress() string {
	trimmedSender := strings.TrimSpace(configuration.Sender)
	if len(trimmedSender) > 0 {
		return trimmedSender
	}
	return strings.TrimSpace(configuration.Username)
}

func (configuration Configuration) subject() string {
	trimmedSubject := strings.TrimSpace(configuration.Subject)
	if len(trimmedSubject) > 0 {
		return trimmedSubject
	}
	return DefaultSubject
}

// DeliveryResult captures the outcome of a single send attempt.
type DeliveryResult struct {
	Delivered bool
	Recipient string
	Err       error
}

// MessageDialer abstracts the gomail dialer so delivery can be substituted in tests.
type MessageDialer interface {
	DialAndSend(messages ...*gomail.Message) error
}

// Sender delivers HTML reports over SMTP.
type Sender struct {
	configuration Configuration
	dialer        MessageDialer
	logger        *zap.Logger
}

// NewSender validates the configuration and prepares a gomail dialer.
// The dialer upgrades with STARTTLS when the relay advertises it and authenticates when a username is set.
func NewSender(configuration Configuration, logger *zap.Logger) (*Sender, error) {
	if validationError := configuration.Validate(); validationError != nil {
		return nil, validationError
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := gomail.NewDialer(strings.TrimSpace(configuration.Host), configuration.Port, strings.TrimSpace(configuration.Username), configuration.Password)
	if configuration.InsecureSkipVerify {
		logger.Warn(logMessageInsecureTLSConstant, zap.String(logFieldHostConstant, dialer.Host))
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: dialer.Host}
	}

	return NewSenderWithDialer(configuration, dialer, logger), nil
}

// NewSenderWithDialer constructs a Sender around an existing dialer.
func NewSenderWithDialer(configuration Configuration, dialer MessageDialer, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{configuration: configuration, dialer: dialer, logger: logger}
}

// Send emails htmlBody to the configured recipient. Failures are reported through the result.
func (sender *Sender) Send(executionContext context.Context, htmlBody string) DeliveryResult {
	recipient := strings.TrimSpace(sender.configuration.Recipient)
	result := DeliveryResult{Recipient: recipient}

	if contextError := executionContext.Err(); contextError != nil {
		result.Err = fmt.Errorf(deliveryErrorTemplateConstant, recipient, contextError)
		return result
	}
	if sender.dialer == nil {
		result.Err = fmt.Errorf(deliveryErrorTemplateConstant, recipient, errors.New(requiredValueMessageConstant))
		return result
	}

	message := gomail.NewMessage()
	message.SetHeader(fromHeaderConstant, sender.configuration.senderAddress())
	message.SetHeader(toHeaderConstant, recipient)
	message.SetHeader(subjectHeaderConstant, sender.configuration.subject())
	message.SetBody(htmlContentTypeConstant, htmlBody)

	sender.logger.Debug(
		logMessageSendingConstant,
		zap.String(logFieldHostConstant, sender.configuration.Host),
		zap.Int(logFieldPortConstant, sender.configuration.Port),
		zap.String(logFieldRecipientConstant, recipient),
		zap.String(logFieldSubjectConstant, sender.configuration.subject()),
	)

	if sendError := sender.dialer.DialAndSend(message); sendError != nil {
		result.Err = fmt.Errorf(deliveryErrorTemplateConstant, recipient, sendError)
		return result
	}

	result.Delivered = true
	return result
}
