package report

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/tokenwatch/internal/expiry"
)

const (
	progressLineTemplateConstant   = "Token ID: %d, Name: %s, Status: %s\n"
	progressSeparatorWidthConstant = 50
	progressSeparatorRuneConstant  = "-"
	progressLogMessageConstant     = "token classified"
	logFieldTokenIDConstant        = "token_id"
	logFieldTokenNameConstant      = "token_name"
	logFieldStatusConstant         = "status"
	logFieldStatusKindConstant     = "status_kind"
	logFieldExpiresAtConstant      = "expires_at"
)

// ProgressReporter emits one diagnostic line per classified token to a console writer and the structured log.
type ProgressReporter struct {
	writer io.Writer
	logger *zap.Logger
}

// NewProgressReporter constructs a ProgressReporter. A nil writer discards console output; a nil logger disables logging.
func NewProgressReporter(writer io.Writer, logger *zap.Logger) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressReporter{writer: writer, logger: logger}
}

// Report writes the progress line for classified.
func (reporter *ProgressReporter) Report(classified expiry.ClassifiedToken) {
	statusText := classified.StatusText()
	fmt.Fprintf(reporter.writer, progressLineTemplateConstant, classified.Token.ID, classified.Token.Name, statusText)
	fmt.Fprintln(reporter.writer, strings.Repeat(progressSeparatorRuneConstant, progressSeparatorWidthConstant))

	fields := []zap.Field{
		zap.Int64(logFieldTokenIDConstant, classified.Token.ID),
		zap.String(logFieldTokenNameConstant, classified.Token.Name),
		zap.String(logFieldStatusConstant, statusText),
		zap.String(logFieldStatusKindConstant, string(classified.Status.Kind)),
		zap.String(logFieldExpiresAtConstant, classified.Token.ExpiresAtText()),
	}
	if classified.Err != nil {
		reporter.logger.Warn(progressLogMessageConstant, append(fields, zap.Error(classified.Err))...)
		return
	}
	reporter.logger.Info(progressLogMessageConstant, fields...)
}
