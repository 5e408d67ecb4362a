package form

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Event is the UI event that triggered a submit.
type Event interface {
	// PreventDefault suppresses the client's default submit behavior.
	PreventDefault()
}

// Outcome is the result of HandleSubmit.
type Outcome int

const (
	// OutcomeSubmitted means the form was valid and OnSubmit succeeded.
	OutcomeSubmitted Outcome = iota
	// OutcomeInvalid means a field had an error; OnError was called.
	OutcomeInvalid
	// OutcomeFailed means OnSubmit returned an error or panicked.
	OutcomeFailed
	// OutcomeCanceled means the context ended or the form was closed.
	OutcomeCanceled
	// OutcomeBusy means another submit was still running.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeBusy:
		return "busy"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// HandleSubmit submits the form: it prevents the event's default, marks
// every field touched, validates (with ValidateOnSubmit), and then calls
// OnSubmit with a copy of the values or OnError with the error map.
//
// IsSubmitting is true until HandleSubmit returns. Errors and panics from
// the handlers are logged, never propagated.
func (f *Form) HandleSubmit(ctx context.Context, ev Event) Outcome {
	if ev != nil {
		ev.PreventDefault()
	}

	ctx, span := f.tracer.Start(ctx, "form.submit",
		trace.WithAttributes(attribute.String("form.id", f.opts.ID)))
	defer span.End()

	start := time.Now()
	outcome := f.submit(ctx)

	span.SetAttributes(attribute.String("form.outcome", outcome.String()))
	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "submit handler failed")
	}
	f.opts.Metrics.observeSubmit(f.opts.ID, outcome, time.Since(start))
	return outcome
}

func (f *Form) submit(ctx context.Context) Outcome {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return OutcomeCanceled
	}
	if f.submitting {
		f.mu.Unlock()
		return OutcomeBusy
	}
	f.submitting = true
	for _, name := range f.order {
		f.touched[name] = true
	}
	f.changedLocked()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.changedLocked()
		f.mu.Unlock()
	}()

	var valid bool
	if f.opts.ValidateOnSubmit {
		ok, err := f.Validate(ctx)
		if err != nil {
			f.logger.Warn("submit validation canceled", "error", err)
			return OutcomeCanceled
		}
		valid = ok
	} else {
		valid = f.IsValid()
	}

	if !valid {
		if f.opts.OnError != nil {
			errs := f.Errors()
			if err := f.guard(func() error { f.opts.OnError(errs); return nil }); err != nil {
				f.logger.Error("error handler failed", "error", err)
			}
		}
		return OutcomeInvalid
	}

	if f.opts.OnSubmit == nil {
		return OutcomeSubmitted
	}
	values := f.Values()
	if err := f.guard(func() error { return f.opts.OnSubmit(ctx, values) }); err != nil {
		f.logger.Error("submit handler failed", "error", err)
		return OutcomeFailed
	}
	return OutcomeSubmitted
}

// guard runs fn and turns a panic into an error.
func (f *Form) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
