package validate

import "context"

// DefaultPendingMessage is the transient error shown while an async check runs.
const DefaultPendingMessage = "Validating..."

// Values maps field names to their current values.
type Values map[string]any

// Validator checks a single field value.
type Validator interface {
	// Validate checks value. all holds every field value of the form,
	// including value itself.
	Validate(value any, all Values) Result
}

// Func is a function that implements Validator.
type Func func(value any, all Values) Result

// Validate calls f(value, all).
func (f Func) Validate(value any, all Values) Result {
	return f(value, all)
}

// Result is the outcome of a validator: OK, a failure message, or pending.
type Result struct {
	msg     string
	pending *Pending
}

// OK is the passing result.
var OK = Result{}

// Fail returns a failing result carrying msg.
func Fail(msg string) Result {
	if msg == "" {
		msg = "Invalid value"
	}
	return Result{msg: msg}
}

// Defer returns a pending result. An empty msg selects DefaultPendingMessage.
func Defer(msg string, run func(ctx context.Context) (string, error)) Result {
	if msg == "" {
		msg = DefaultPendingMessage
	}
	return Result{msg: msg, pending: &Pending{Message: msg, Run: run}}
}

// Valid reports whether the result is OK.
func (r Result) Valid() bool {
	return r.msg == "" && r.pending == nil
}

// Message returns the failure message, the transient message for a pending
// result, or "" for OK.
func (r Result) Message() string {
	return r.msg
}

// Pending returns the async part of a pending result.
func (r Result) Pending() (*Pending, bool) {
	return r.pending, r.pending != nil
}

// Pending is an asynchronous validation in waiting.
type Pending struct {
	// Message is shown as the field error until Run returns.
	Message string

	// Run performs the check. It returns "" when the value is valid, or
	// the failure message. A non-nil error means the check itself broke.
	Run func(ctx context.Context) (string, error)
}

// Compose runs validators in order and returns the first result that is
// not OK. When that result is pending, the remaining validators run after
// the async check passes.
func Compose(validators ...Validator) Validator {
	return Func(func(value any, all Values) Result {
		return run(validators, value, all)
	})
}

// ComposeValidators is an alias for Compose.
func ComposeValidators(validators ...Validator) Validator {
	return Compose(validators...)
}

// Run evaluates validators against value the way Compose does.
func Run(validators []Validator, value any, all Values) Result {
	return run(validators, value, all)
}

func run(validators []Validator, value any, all Values) Result {
	for i, v := range validators {
		if v == nil {
			continue
		}
		r := v.Validate(value, all)
		if r.Valid() {
			continue
		}
		p, ok := r.Pending()
		if !ok {
			return r
		}
		rest := validators[i+1:]
		if len(rest) == 0 {
			return r
		}
		return Defer(p.Message, func(ctx context.Context) (string, error) {
			msg, err := p.Run(ctx)
			if err != nil || msg != "" {
				return msg, err
			}
			return Resolve(ctx, run(rest, value, all))
		})
	}
	return OK
}

// Resolve waits for r if it is pending and returns the final message.
func Resolve(ctx context.Context, r Result) (string, error) {
	p, ok := r.Pending()
	if !ok {
		return r.Message(), nil
	}
	if p.Run == nil {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Run(ctx)
}
