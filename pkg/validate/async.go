package validate

import (
	"context"
	"slices"
)

// AsyncFunc performs a slow check such as a server lookup. It returns ""
// when value is valid, or a failure message.
type AsyncFunc func(ctx context.Context, value any, all Values) (string, error)

// Async returns a validator whose result is always pending. msg is the
// transient message shown while fn runs; empty selects
// DefaultPendingMessage. The value map is copied so fn sees the values
// as they were when validation was issued.
func Async(msg string, fn AsyncFunc) Validator {
	return Func(func(value any, all Values) Result {
		snapshot := all.Clone()
		return Defer(msg, func(ctx context.Context) (string, error) {
			return fn(ctx, value, snapshot)
		})
	})
}

// Clone returns a copy of v. Slice values are copied too, so the copy
// shares no state with v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = CloneValue(val)
	}
	return out
}

// CloneValue returns v with slice values copied. Other values are
// returned as is.
func CloneValue(v any) any {
	switch s := v.(type) {
	case []string:
		return slices.Clone(s)
	case []any:
		return slices.Clone(s)
	}
	return v
}
