package form

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tracerName = "formstate"

// Validation result labels.
const (
	resultValid    = "valid"
	resultInvalid  = "invalid"
	resultError    = "error"
	resultCanceled = "canceled"
)

func resultOf(msg string) string {
	if msg == "" {
		return resultValid
	}
	return resultInvalid
}

// MetricsConfig configures form metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "formstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures form metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

// Metrics records validation and submission activity. A nil *Metrics
// records nothing. One Metrics value may be shared by many forms.
type Metrics struct {
	validations        *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	submitDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers form metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "formstate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "validations_total",
			Help:        "Total number of field validations by result",
			ConstLabels: config.ConstLabels,
		}, []string{"form", "field", "result"}),

		validationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "validation_duration_seconds",
			Help:        "Field validation duration in seconds, including async checks",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"form"}),

		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submissions_total",
			Help:        "Total number of form submissions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"form", "outcome"}),

		submitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submit_duration_seconds",
			Help:        "Form submission duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"form"}),
	}
}

func (m *Metrics) observeValidation(form, field, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(form, field, result).Inc()
	if result != resultCanceled {
		m.validationDuration.WithLabelValues(form).Observe(d.Seconds())
	}
}

func (m *Metrics) observeSubmit(form string, outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, outcome.String()).Inc()
	m.submitDuration.WithLabelValues(form).Observe(d.Seconds())
}
