package form

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/formstate/pkg/validate"
)

// Validate runs every field's validators, async ones concurrently, and
// waits for all of them. It reports whether no field has an error. The
// error is non-nil only when ctx ends first.
func (f *Form) Validate(ctx context.Context) (bool, error) {
	ctx, span := f.tracer.Start(ctx, "form.validate",
		trace.WithAttributes(attribute.String("form.id", f.opts.ID)))
	defer span.End()

	names := f.Fields()
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			_, err := f.validateField(gctx, name, true)
			if stderrors.Is(err, ErrUnknownField) {
				return nil // unregistered while validating
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	valid := f.IsValid()
	span.SetAttributes(
		attribute.Int("form.fields", len(names)),
		attribute.Bool("form.valid", valid),
	)
	return valid, nil
}

// ValidateField validates one field and waits for async checks.
func (f *Form) ValidateField(ctx context.Context, name string) (bool, error) {
	msg, err := f.validateField(ctx, name, true)
	if err != nil {
		return false, err
	}
	return msg == "", nil
}

// validateField runs the validators of name. With wait, a pending result is
// resolved before returning and ctx bounds it; otherwise it resolves on a
// background goroutine bound to the form's lifetime.
func (f *Form) validateField(ctx context.Context, name string, wait bool) (string, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", closedError()
	}
	fld, ok := f.fields[name]
	if !ok {
		f.mu.Unlock()
		return "", unknownField(name)
	}
	gen := f.supersedeLocked(name)
	value := validate.CloneValue(f.values[name])
	all := f.values.Clone()
	f.mu.Unlock()

	start := time.Now()
	r, err := safeValidate(fld.validator, value, all)
	if err != nil {
		f.logger.Error("validator failed", "field", name, "error", err)
		msg := f.opts.ValidatorErrorMessage
		f.finish(name, gen, msg, true)
		f.opts.Metrics.observeValidation(f.opts.ID, name, resultError, time.Since(start))
		return msg, nil
	}

	p, pending := r.Pending()
	if !pending {
		f.finish(name, gen, r.Message(), true)
		f.opts.Metrics.observeValidation(f.opts.ID, name, resultOf(r.Message()), time.Since(start))
		return r.Message(), nil
	}

	base := f.ctx
	if wait {
		base = ctx
	}
	runCtx, cancel := context.WithCancel(base)
	if wait {
		stop := context.AfterFunc(f.ctx, cancel)
		defer stop()
	}
	if f.opts.ValidationTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, f.opts.ValidationTimeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}

	f.mu.Lock()
	if f.closed || f.gens[name] != gen {
		f.mu.Unlock()
		cancel()
		return "", nil
	}
	f.errors[name] = p.Message
	f.inflight[name] = &inflight{gen: gen, cancel: cancel}
	if !wait {
		f.jobs.Add(1)
	}
	f.changedLocked()
	f.mu.Unlock()

	if !wait {
		go func() {
			defer f.jobs.Done()
			f.resolve(ctx, runCtx, cancel, name, gen, p, start, false)
		}()
		return p.Message, nil
	}
	return f.resolve(ctx, runCtx, cancel, name, gen, p, start, true)
}

// resolve waits for a pending check and applies its verdict if it is still
// the field's latest validation. Validator errors, panics, and timeouts are
// logged and reported as ValidatorErrorMessage.
func (f *Form) resolve(caller, ctx context.Context, cancel context.CancelFunc, name string, gen uint64, p *validate.Pending, start time.Time, wait bool) (string, error) {
	defer cancel()

	msg, err := safeRun(ctx, p)
	switch {
	case err == nil:
		f.finish(name, gen, msg, true)
		f.opts.Metrics.observeValidation(f.opts.ID, name, resultOf(msg), time.Since(start))
		return msg, nil

	case wait && caller.Err() != nil:
		f.finish(name, gen, "", false)
		f.opts.Metrics.observeValidation(f.opts.ID, name, resultCanceled, time.Since(start))
		return "", caller.Err()

	case stderrors.Is(ctx.Err(), context.Canceled):
		// Superseded, reset, unregistered, or closed.
		f.finish(name, gen, "", false)
		f.opts.Metrics.observeValidation(f.opts.ID, name, resultCanceled, time.Since(start))
		return "", nil
	}

	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		f.logger.Warn("async validation timed out", "field", name, "timeout", f.opts.ValidationTimeout)
	} else {
		f.logger.Error("async validator failed", "field", name, "error", err)
	}
	msg = f.opts.ValidatorErrorMessage
	f.finish(name, gen, msg, true)
	f.opts.Metrics.observeValidation(f.opts.ID, name, resultError, time.Since(start))
	return msg, nil
}

// finish applies a validation verdict if gen is still current. With set
// false the field's error entry is removed instead.
func (f *Form) finish(name string, gen uint64, msg string, set bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gens[name] != gen {
		return false
	}
	if _, ok := f.fields[name]; !ok {
		return false
	}
	delete(f.inflight, name)
	if set {
		f.errors[name] = msg
	} else {
		delete(f.errors, name)
	}
	f.changedLocked()
	return true
}

func safeValidate(v validate.Validator, value any, all Values) (r validate.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("validator panic: %v", rec)
		}
	}()
	return v.Validate(value, all), nil
}

func safeRun(ctx context.Context, p *validate.Pending) (msg string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("async validator panic: %v", rec)
		}
	}()
	if p.Run == nil {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Run(ctx)
}
