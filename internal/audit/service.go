package audit

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/gitlab"
	"github.com/temirov/tokenwatch/internal/metrics"
	"github.com/temirov/tokenwatch/internal/notify"
	"github.com/temirov/tokenwatch/internal/report"
	pathutils "github.com/temirov/tokenwatch/internal/utils/path"
)

const (
	fetchErrorTemplateConstant          = "unable to fetch personal access tokens: %w"
	classificationErrorTemplateConstant = "unable to classify personal access tokens: %w"
	reportErrorTemplateConstant         = "unable to produce report: %w"
	reportPathErrorTemplateConstant     = "invalid report path: %w"
	emailSentTemplateConstant           = "Email sent to %s\n"
	emailFailedTemplateConstant         = "Failed to send email: %v\n"
	reportWrittenTemplateConstant       = "Report written to %s\n"
	emailCancelledTemplateConstant      = "Email not sent: %v\n"
	missingTokenListerMessageConstant   = "token lister not configured"
	missingNotifierMessageConstant      = "notifier not configured"
	logMessageRunStartedConstant        = "token expiry check started"
	logMessageTokensFetchedConstant     = "personal access tokens fetched"
	logMessageTokenDetailsConstant      = "personal access token details"
	logMessageReportWrittenConstant     = "report written"
	logMessageEmailSkippedConstant      = "email delivery skipped"
	logMessageEmailCancelledConstant    = "run cancelled after the report was written, email delivery skipped"
	logMessageEmailDeliveredConstant    = "report email delivered"
	logMessageEmailFailedConstant       = "report email delivery failed"
	logMessageMetricsFailedConstant     = "metrics textfile write failed"
	logMessageRunCompletedConstant      = "token expiry check completed"
	logFieldRunIDConstant               = "run_id"
	logFieldCheckedAtConstant           = "checked_at"
	logFieldThresholdDaysConstant       = "threshold_days"
	logFieldTokenCountConstant          = "token_count"
	logFieldTokenIDConstant             = "token_id"
	logFieldRevokedConstant             = "revoked"
	logFieldActiveConstant              = "active"
	logFieldScopesConstant              = "scopes"
	logFieldUserIDConstant              = "user_id"
	logFieldLastUsedAtConstant          = "last_used_at"
	logFieldReportPathConstant          = "report_path"
	logFieldRecipientConstant           = "recipient"
	logFieldMetricsPathConstant         = "metrics_textfile_path"
)

// ErrTokenListerMissing indicates the service was constructed without a token source.
var ErrTokenListerMissing = errors.New(missingTokenListerMessageConstant)

// ErrNotifierMissing indicates email delivery was requested without a notifier.
var ErrNotifierMissing = errors.New(missingNotifierMessageConstant)

// Service runs the fetch, classify, render, notify pipeline once per invocation.
type Service struct {
	tokenLister     TokenLister
	notifier        Notifier
	metricsRecorder MetricsRecorder
	renderer        *report.Renderer
	pathExpander    *pathutils.HomeExpander
	outputWriter    io.Writer
	errorWriter     io.Writer
	logger          *zap.Logger
	clock           Clock
}

// ServiceDependencies groups the collaborators of a Service. Only TokenLister is mandatory.
type ServiceDependencies struct {
	TokenLister     TokenLister
	Notifier        Notifier
	MetricsRecorder MetricsRecorder
	Renderer        *report.Renderer
	PathExpander    *pathutils.HomeExpander
	OutputWriter    io.Writer
	ErrorWriter     io.Writer
	Logger          *zap.Logger
	Clock           Clock
}

// NewService constructs a Service using the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.TokenLister == nil {
		return nil, ErrTokenListerMissing
	}

	renderer := dependencies.Renderer
	if renderer == nil {
		defaultRenderer, rendererError := report.NewRenderer()
		if rendererError != nil {
			return nil, rendererError
		}
		renderer = defaultRenderer
	}

	pathExpander := dependencies.PathExpander
	if pathExpander == nil {
		pathExpander = pathutils.NewHomeExpander()
	}

	outputWriter := dependencies.OutputWriter
	if outputWriter == nil {
		outputWriter = io.Discard
	}

	errorWriter := dependencies.ErrorWriter
	if errorWriter == nil {
		errorWriter = io.Discard
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		tokenLister:     dependencies.TokenLister,
		notifier:        dependencies.Notifier,
		metricsRecorder: dependencies.MetricsRecorder,
		renderer:        renderer,
		pathExpander:    pathExpander,
		outputWriter:    outputWriter,
		errorWriter:     errorWriter,
		logger:          logger,
		clock:           clock,
	}, nil
}

// Run executes one check. Tokens are fetched before the report is touched, so a failed fetch leaves any
// previous report intact. Email and metrics failures are logged and do not fail the run.
func (service *Service) Run(executionContext context.Context, options Options) (Summary, error) {
	if !options.SkipEmail && service.notifier == nil {
		return Summary{}, ErrNotifierMissing
	}

	classifier, classifierError := expiry.NewClassifier(options.ThresholdDays)
	if classifierError != nil {
		return Summary{}, classifierError
	}

	reportPath, reportPathError := service.pathExpander.Expand(options.ReportPath)
	if reportPathError != nil {
		return Summary{}, fmt.Errorf(reportPathErrorTemplateConstant, reportPathError)
	}

	checkedAt := service.clock.Now().UTC()
	summary := Summary{
		RunID:        uuid.NewString(),
		CheckedAt:    checkedAt,
		ReportPath:   reportPath,
		StatusCounts: make(map[expiry.Kind]int, len(expiry.Kinds)),
		EmailSkipped: options.SkipEmail,
	}

	runLogger := service.logger.With(zap.String(logFieldRunIDConstant, summary.RunID))
	runLogger.Info(
		logMessageRunStartedConstant,
		zap.Time(logFieldCheckedAtConstant, checkedAt),
		zap.Int(logFieldThresholdDaysConstant, classifier.ThresholdDays()),
	)

	tokens, fetchError := service.tokenLister.ListPersonalAccessTokens(executionContext)
	if fetchError != nil {
		return summary, fmt.Errorf(fetchErrorTemplateConstant, fetchError)
	}
	summary.TokenCount = len(tokens)
	runLogger.Info(logMessageTokensFetchedConstant, zap.Int(logFieldTokenCountConstant, len(tokens)))

	if reportError := service.writeReport(summary, tokens, classifier, options.InvalidExpiryPolicy, runLogger); reportError != nil {
		return summary, reportError
	}
	fmt.Fprintf(service.outputWriter, reportWrittenTemplateConstant, reportPath)
	runLogger.Info(logMessageReportWrittenConstant, zap.String(logFieldReportPathConstant, reportPath))

	switch contextError := executionContext.Err(); {
	case options.SkipEmail:
		runLogger.Info(logMessageEmailSkippedConstant)
	case contextError != nil:
		summary.EmailSkipped = true
		fmt.Fprintf(service.errorWriter, emailCancelledTemplateConstant, contextError)
		runLogger.Warn(logMessageEmailCancelledConstant, zap.Error(contextError))
	default:
		summary.Delivery = service.deliver(executionContext, reportPath, runLogger)
	}

	service.recordMetrics(summary, options.MetricsTextfilePath, runLogger)

	runLogger.Info(logMessageRunCompletedConstant, zap.Int(logFieldTokenCountConstant, summary.TokenCount))
	return summary, nil
}

func (service *Service) writeReport(summary Summary, tokens []gitlab.PersonalAccessToken, classifier expiry.Classifier, policy expiry.InvalidExpiryPolicy, runLogger *zap.Logger) (resultError error) {
	reportWriter, writerError := report.NewFileWriter(summary.ReportPath, service.renderer)
	if writerError != nil {
		return fmt.Errorf(reportErrorTemplateConstant, writerError)
	}
	defer func() {
		if closeError := reportWriter.Close(); closeError != nil && resultError == nil {
			resultError = fmt.Errorf(reportErrorTemplateConstant, closeError)
		}
	}()

	if headerError := reportWriter.WriteHeader(summary.CheckedAt); headerError != nil {
		return fmt.Errorf(reportErrorTemplateConstant, headerError)
	}

	progressReporter := report.NewProgressReporter(service.outputWriter, runLogger)
	for _, token := range tokens {
		runLogger.Debug(
			logMessageTokenDetailsConstant,
			zap.Int64(logFieldTokenIDConstant, token.ID),
			zap.Bool(logFieldRevokedConstant, token.Revoked),
			zap.Bool(logFieldActiveConstant, token.Active),
			zap.Strings(logFieldScopesConstant, token.Scopes),
			zap.Int64(logFieldUserIDConstant, token.UserID),
			zap.Stringp(logFieldLastUsedAtConstant, token.LastUsedAt),
		)

		classified, classifyError := classifier.ClassifyToken(token, summary.CheckedAt, policy)
		if classifyError != nil {
			return fmt.Errorf(classificationErrorTemplateConstant, classifyError)
		}

		if blockError := reportWriter.WriteBlock(classified); blockError != nil {
			return fmt.Errorf(reportErrorTemplateConstant, blockError)
		}
		progressReporter.Report(classified)
		summary.StatusCounts[classified.Status.Kind]++
	}

	return nil
}

func (service *Service) deliver(executionContext context.Context, reportPath string, runLogger *zap.Logger) notify.DeliveryResult {
	reportBody, readError := report.ReadReport(reportPath)
	if readError != nil {
		fmt.Fprintf(service.errorWriter, emailFailedTemplateConstant, readError)
		runLogger.Error(logMessageEmailFailedConstant, zap.Error(readError))
		return notify.DeliveryResult{Err: readError}
	}

	deliveryResult := service.notifier.Send(executionContext, reportBody)
	if deliveryResult.Err != nil {
		fmt.Fprintf(service.errorWriter, emailFailedTemplateConstant, deliveryResult.Err)
		runLogger.Error(
			logMessageEmailFailedConstant,
			zap.String(logFieldRecipientConstant, deliveryResult.Recipient),
			zap.Error(deliveryResult.Err),
		)
		return deliveryResult
	}

	fmt.Fprintf(service.outputWriter, emailSentTemplateConstant, deliveryResult.Recipient)
	runLogger.Info(logMessageEmailDeliveredConstant, zap.String(logFieldRecipientConstant, deliveryResult.Recipient))
	return deliveryResult
}

func (service *Service) recordMetrics(summary Summary, textfilePath string, runLogger *zap.Logger) {
	if service.metricsRecorder == nil {
		return
	}
	service.metricsRecorder.Observe(metrics.RunSnapshot{
		CompletedAt:    service.clock.Now(),
		StatusCounts:   summary.StatusCounts,
		EmailDelivered: summary.Delivery.Delivered,
	})
	if writeError := service.metricsRecorder.WriteTextfile(textfilePath); writeError != nil {
		runLogger.Warn(
			logMessageMetricsFailedConstant,
			zap.String(logFieldMetricsPathConstant, textfilePath),
			zap.Error(writeError),
		)
	}
}
