package form

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/validate"
)

// Sentinel errors. Compare with errors.Is; returned errors carry detail.
var (
	ErrEmptyName    = errors.New("F001")
	ErrUnknownField = errors.New("F002")
	ErrClosed       = errors.New("F003")
)

func unknownField(name string) error {
	return errors.New("F002").WithDetail("field " + quote(name))
}

func closedError() error {
	return errors.New("F003")
}

func quote(s string) string {
	return `"` + s + `"`
}

// Form holds the state of one form instance: the field registry, values,
// errors, and touched and dirty flags.
//
// A Form is safe for concurrent use. Validators run without the form's
// lock held and must not call back into the form; listeners may.
type Form struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	mu         sync.Mutex
	fields     map[string]*field
	order      []string
	values     Values
	initial    Values
	errors     map[string]string
	touched    map[string]bool
	dirty      map[string]bool
	submitting bool
	inflight   map[string]*inflight
	gens       map[string]uint64
	version    uint64
	changed    chan struct{}
	closed     bool

	// ctx is canceled by Close; background validations derive from it.
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup

	listenMu    sync.Mutex
	listeners   map[uint64]func(Snapshot)
	nextListen  uint64
	dispatching bool
	wake        chan struct{}
}

// inflight is an async validation that has not resolved yet.
type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// New creates an empty form.
func New(opts ...Option) *Form {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.ValidatorErrorMessage == "" {
		o.ValidatorErrorMessage = DefaultValidatorErrorMessage
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default().With("component", "form")
	}
	if o.ID != "" {
		logger = logger.With("form", o.ID)
	}
	tracer := o.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Form{
		opts:      o,
		logger:    logger,
		tracer:    tracer,
		fields:    make(map[string]*field),
		values:    make(Values),
		initial:   make(Values),
		errors:    make(map[string]string),
		touched:   make(map[string]bool),
		dirty:     make(map[string]bool),
		inflight:  make(map[string]*inflight),
		gens:      make(map[string]uint64),
		changed:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[uint64]func(Snapshot)),
		wake:      make(chan struct{}, 1),
	}
}

// ID returns the form ID.
func (f *Form) ID() string {
	return f.opts.ID
}

// RegisterField adds a field. Registering a name twice keeps the first
// config. The value starts as InitialValues[name], else the config's
// default, and becomes the field's entry in the reset snapshot.
func (f *Form) RegisterField(name string, cfg FieldConfig) error {
	if name == "" {
		return errors.New("F001")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return closedError()
	}
	if _, ok := f.fields[name]; ok {
		return nil
	}

	fld := newField(name, cfg)
	f.fields[name] = fld
	f.order = append(f.order, name)

	if _, set := f.values[name]; !set {
		v, ok := f.opts.InitialValues[name]
		if !ok {
			v = fld.defaultValue()
		}
		f.values[name] = validate.CloneValue(v)
	}
	if _, ok := f.initial[name]; !ok {
		f.initial[name] = f.values[name]
	}

	f.changedLocked()
	return nil
}

// UnregisterField removes a field together with its value, error, touched
// and dirty entries. An in-flight validation of the field is canceled.
func (f *Form) UnregisterField(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.fields[name]; !ok {
		return
	}
	f.supersedeLocked(name)

	delete(f.fields, name)
	f.order = slices.DeleteFunc(f.order, func(n string) bool { return n == name })
	delete(f.values, name)
	delete(f.initial, name)
	delete(f.errors, name)
	delete(f.touched, name)
	delete(f.dirty, name)

	f.changedLocked()
}

// SetValue sets a field value and marks the field dirty. With
// ValidateOnChange the field is revalidated; async checks resolve in the
// background.
func (f *Form) SetValue(name string, value any) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return closedError()
	}
	if _, ok := f.fields[name]; !ok {
		f.mu.Unlock()
		return unknownField(name)
	}
	f.values[name] = validate.CloneValue(value)
	f.dirty[name] = true
	f.changedLocked()
	validateNow := f.opts.ValidateOnChange
	f.mu.Unlock()

	if validateNow {
		f.validateField(f.ctx, name, false)
	}
	return nil
}

// SetError sets a field error directly. An empty msg records the field as
// validated without error. Any in-flight validation of the field is
// discarded.
func (f *Form) SetError(name, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return closedError()
	}
	if _, ok := f.fields[name]; !ok {
		return unknownField(name)
	}
	f.supersedeLocked(name)
	f.errors[name] = msg
	f.changedLocked()
	return nil
}

// SetTouched sets the touched flag of a field. With ValidateOnBlur,
// touching a field revalidates it.
func (f *Form) SetTouched(name string, touched bool) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return closedError()
	}
	if _, ok := f.fields[name]; !ok {
		f.mu.Unlock()
		return unknownField(name)
	}
	f.touched[name] = touched
	f.changedLocked()
	validateNow := touched && f.opts.ValidateOnBlur
	f.mu.Unlock()

	if validateNow {
		f.validateField(f.ctx, name, false)
	}
	return nil
}

// Reset restores the initial values and clears errors, touched and dirty
// flags. Registrations are kept and in-flight validations are discarded.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name := range f.inflight {
		f.supersedeLocked(name)
	}
	f.values = f.initial.Clone()
	f.errors = make(map[string]string)
	f.touched = make(map[string]bool)
	f.dirty = make(map[string]bool)

	f.changedLocked()
}

// Close cancels in-flight validations, stops listener dispatch, and waits
// for background work to exit. Close must not be called from a listener.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for name := range f.inflight {
		f.supersedeLocked(name)
	}
	f.cancel()
	f.changedLocked()
	f.mu.Unlock()

	f.jobs.Wait()
}

// Fields returns the registered field names in registration order.
func (f *Form) Fields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.order)
}

// Kind returns the kind of a registered field.
func (f *Form) Kind(name string) (FieldKind, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld, ok := f.fields[name]
	if !ok {
		return FieldKind{}, false
	}
	return fld.config.Kind, true
}

// Values returns a copy of the current values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Value returns the current value of a field.
func (f *Form) Value(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	return validate.CloneValue(v), ok
}

// Errors returns a copy of the error map. A present "" entry means the
// field was validated without error.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMap(f.errors)
}

// Error returns the current error of a field, "" if none.
func (f *Form) Error(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[name]
}

// Touched returns a copy of the touched flags.
func (f *Form) Touched() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMap(f.touched)
}

// IsTouched reports whether a field is touched.
func (f *Form) IsTouched(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[name]
}

// IsSubmitting reports whether a submit is in progress.
func (f *Form) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// IsValidating reports whether any async validation is in flight.
func (f *Form) IsValidating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inflight) > 0
}

// IsDirty reports whether any field value was set since the last reset.
func (f *Form) IsDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dirty) > 0
}

// FieldDirty reports whether a field value was set since the last reset.
func (f *Form) FieldDirty(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty[name]
}

// IsValid reports whether no field has an error.
func (f *Form) IsValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validLocked()
}

func (f *Form) validLocked() bool {
	for _, msg := range f.errors {
		if msg != "" {
			return false
		}
	}
	return true
}

// Wait blocks until no async validation is in flight.
func (f *Form) Wait(ctx context.Context) error {
	for {
		f.mu.Lock()
		if len(f.inflight) == 0 {
			f.mu.Unlock()
			return nil
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// supersedeLocked starts a new validation generation for name and cancels
// the in-flight one. Results of older generations are discarded.
func (f *Form) supersedeLocked(name string) uint64 {
	f.gens[name]++
	if in, ok := f.inflight[name]; ok {
		in.cancel()
		delete(f.inflight, name)
	}
	return f.gens[name]
}

// changedLocked records a state change and wakes waiters and listeners.
func (f *Form) changedLocked() {
	f.version++
	close(f.changed)
	f.changed = make(chan struct{})
	f.poke()
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
