package audit

import (
	"time"

	"github.com/temirov/tokenwatch/internal/credentials"
	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/notify"
)

// Options captures the immutable parameters of a single check run.
type Options struct {
	BaseURL             string
	TokenSource         credentials.Source
	RequestTimeout      time.Duration
	ReportPath          string
	ThresholdDays       int
	InvalidExpiryPolicy expiry.InvalidExpiryPolicy
	SkipEmail           bool
	Mail                notify.Configuration
	MailPasswordSource  credentials.Source
	MetricsTextfilePath string
}

// Summary describes the outcome of a completed run.
type Summary struct {
	RunID        string
	CheckedAt    time.Time
	ReportPath   string
	TokenCount   int
	StatusCounts map[expiry.Kind]int
	EmailSkipped bool
	Delivery     notify.DeliveryResult
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
