package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/tokenwatch/internal/gitlab"
	"github.com/temirov/tokenwatch/internal/metrics"
	"github.com/temirov/tokenwatch/internal/notify"
)

// TokenLister retrieves the personal access tokens to classify.
type TokenLister interface {
	ListPersonalAccessTokens(executionContext context.Context) ([]gitlab.PersonalAccessToken, error)
}

// Notifier delivers the rendered report.
type Notifier interface {
	Send(executionContext context.Context, htmlBody string) notify.DeliveryResult
}

// MetricsRecorder exports the run outcome.
type MetricsRecorder interface {
	Observe(snapshot metrics.RunSnapshot)
	WriteTextfile(textfilePath string) error
}

// TokenListerFactory constructs a TokenLister for the resolved GitLab configuration.
type TokenListerFactory func(configuration gitlab.ClientConfiguration, httpClient gitlab.HTTPClient) (TokenLister, error)

// NotifierFactory constructs a Notifier for the resolved mail configuration.
type NotifierFactory func(configuration notify.Configuration, logger *zap.Logger) (Notifier, error)

func defaultTokenListerFactory(configuration gitlab.ClientConfiguration, httpClient gitlab.HTTPClient) (TokenLister, error) {
	client, clientError := gitlab.NewClient(configuration, httpClient)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}

func defaultNotifierFactory(configuration notify.Configuration, logger *zap.Logger) (Notifier, error) {
	sender, senderError := notify.NewSender(configuration, logger)
	if senderError != nil {
		return nil, senderError
	}
	return sender, nil
}
