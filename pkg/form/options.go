package form

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultValidatorErrorMessage is shown when an async validator fails to
// produce a verdict.
const DefaultValidatorErrorMessage = "Validation failed"

// SubmitFunc receives a copy of the form values after a valid submit.
type SubmitFunc func(ctx context.Context, values Values) error

// ErrorFunc receives the error map after an invalid submit.
type ErrorFunc func(errors map[string]string)

// Options configures a Form.
type Options struct {
	// ID names the form in logs, metrics, and traces.
	ID string

	// ValidateOnChange revalidates a field when its value changes.
	// Default: true.
	ValidateOnChange bool

	// ValidateOnBlur revalidates a field when it becomes touched.
	// Default: true.
	ValidateOnBlur bool

	// ValidateOnSubmit runs whole-form validation before OnSubmit.
	// Default: true.
	ValidateOnSubmit bool

	// InitialValues override field defaults at registration.
	InitialValues Values

	// OnSubmit runs after a valid submit.
	OnSubmit SubmitFunc

	// OnError runs after an invalid submit.
	OnError ErrorFunc

	// ValidatorErrorMessage is the field error set when an async validator
	// returns an error, panics, or times out.
	// Default: DefaultValidatorErrorMessage.
	ValidatorErrorMessage string

	// ValidationTimeout bounds each async validation. Zero means no limit.
	ValidationTimeout time.Duration

	// Logger receives submit and validator failures.
	// Default: slog.Default().With("component", "form").
	Logger *slog.Logger

	// Metrics records validation and submission counts. Nil disables metrics.
	Metrics *Metrics

	// Tracer creates spans for whole-form validation and submission.
	// Default: the global OpenTelemetry tracer named "formstate".
	Tracer trace.Tracer
}

// Option configures a Form.
type Option func(*Options)

// DefaultOptions returns the default form options.
func DefaultOptions() Options {
	return Options{
		ValidateOnChange:      true,
		ValidateOnBlur:        true,
		ValidateOnSubmit:      true,
		ValidatorErrorMessage: DefaultValidatorErrorMessage,
	}
}

// WithID sets the form ID.
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

// WithValidateOnChange enables or disables validation on value changes.
func WithValidateOnChange(enabled bool) Option {
	return func(o *Options) { o.ValidateOnChange = enabled }
}

// WithValidateOnBlur enables or disables validation on blur.
func WithValidateOnBlur(enabled bool) Option {
	return func(o *Options) { o.ValidateOnBlur = enabled }
}

// WithValidateOnSubmit enables or disables validation on submit.
func WithValidateOnSubmit(enabled bool) Option {
	return func(o *Options) { o.ValidateOnSubmit = enabled }
}

// WithInitialValues sets values that override field defaults.
func WithInitialValues(values Values) Option {
	return func(o *Options) { o.InitialValues = values.Clone() }
}

// WithOnSubmit sets the submit handler.
func WithOnSubmit(fn SubmitFunc) Option {
	return func(o *Options) { o.OnSubmit = fn }
}

// WithOnError sets the invalid-submit handler.
func WithOnError(fn ErrorFunc) Option {
	return func(o *Options) { o.OnError = fn }
}

// WithValidatorErrorMessage sets the message used when an async validator breaks.
func WithValidatorErrorMessage(msg string) Option {
	return func(o *Options) { o.ValidatorErrorMessage = msg }
}

// WithValidationTimeout bounds each async validation.
func WithValidationTimeout(d time.Duration) Option {
	return func(o *Options) { o.ValidationTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) { o.Tracer = t }
}
