package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/tokenwatch/internal/expiry"
	pathutils "github.com/temirov/tokenwatch/internal/utils/path"
)

const (
	tokensMetricNameConstant            = "tokenwatch_tokens"
	tokensMetricHelpConstant            = "Number of personal access tokens per expiry status in the last run"
	lastRunMetricNameConstant           = "tokenwatch_last_run_timestamp_seconds"
	lastRunMetricHelpConstant           = "Unix time of the last completed token expiry check"
	emailDeliveredMetricNameConstant    = "tokenwatch_email_delivered"
	emailDeliveredMetricHelpConstant    = "Whether the last report email was delivered (1) or not (0)"
	statusLabelNameConstant             = "status"
	textfileWriteErrorTemplateConstant  = "unable to write metrics textfile %s: %w"
	textfileExpandErrorTemplateConstant = "unable to resolve metrics textfile path %s: %w"
)

// RunSnapshot is the outcome of one audit run as exported to Prometheus.
type RunSnapshot struct {
	CompletedAt    time.Time
	StatusCounts   map[expiry.Kind]int
	EmailDelivered bool
}

// Recorder owns a dedicated registry holding the run gauges.
type Recorder struct {
	registry       *prometheus.Registry
	tokens         *prometheus.GaugeVec
	lastRun        prometheus.Gauge
	emailDelivered prometheus.Gauge
	pathExpander   *pathutils.HomeExpander
}

// NewRecorder registers the run gauges on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	recorder := &Recorder{
		registry: registry,
		tokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: tokensMetricNameConstant,
			Help: tokensMetricHelpConstant,
		}, []string{statusLabelNameConstant}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: lastRunMetricNameConstant,
			Help: lastRunMetricHelpConstant,
		}),
		emailDelivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: emailDeliveredMetricNameConstant,
			Help: emailDeliveredMetricHelpConstant,
		}),
		pathExpander: pathutils.NewHomeExpander(),
	}
	registry.MustRegister(recorder.tokens, recorder.lastRun, recorder.emailDelivered)
	return recorder
}

// Registry exposes the underlying registry.
func (recorder *Recorder) Registry() *prometheus.Registry {
	return recorder.registry
}

// Observe sets every gauge from snapshot. Each known status is exported, zero when absent.
func (recorder *Recorder) Observe(snapshot RunSnapshot) {
	for _, kind := range expiry.Kinds {
		recorder.tokens.WithLabelValues(string(kind)).Set(float64(snapshot.StatusCounts[kind]))
	}
	recorder.lastRun.Set(float64(snapshot.CompletedAt.Unix()))
	if snapshot.EmailDelivered {
		recorder.emailDelivered.Set(1)
		return
	}
	recorder.emailDelivered.Set(0)
}

// WriteTextfile writes the registry in the node-exporter textfile format. A blank path is a no-op.
func (recorder *Recorder) WriteTextfile(textfilePath string) error {
	trimmedPath := strings.TrimSpace(textfilePath)
	if len(trimmedPath) == 0 {
		return nil
	}
	expandedPath, expandError := recorder.pathExpander.Expand(trimmedPath)
	if expandError != nil {
		return fmt.Errorf(textfileExpandErrorTemplateConstant, trimmedPath, expandError)
	}
	if writeError := prometheus.WriteToTextfile(expandedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, expandedPath, writeError)
	}
	return nil
}
