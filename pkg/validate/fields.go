package validate

import "fmt"

// FieldsMatch fails unless the value equals the sibling field other.
// A missing sibling counts as a mismatch.
func FieldsMatch(other string, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must match %s", other)
	}
	return Func(func(value any, all Values) Result {
		sibling, ok := all[other]
		if !ok || !equals(value, sibling) {
			return Fail(msg)
		}
		return OK
	})
}

// FieldsDiffer fails when the value equals the sibling field other.
// A missing sibling satisfies the check.
func FieldsDiffer(other string, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must differ from %s", other)
	}
	return Func(func(value any, all Values) Result {
		sibling, ok := all[other]
		if !ok {
			return OK
		}
		if equals(value, sibling) {
			return Fail(msg)
		}
		return OK
	})
}

// ValidateIf runs v only when cond holds for the current values.
func ValidateIf(cond func(all Values) bool, v Validator) Validator {
	return Func(func(value any, all Values) Result {
		if cond == nil || !cond(all) {
			return OK
		}
		return v.Validate(value, all)
	})
}

// FieldEquals returns a condition for ValidateIf that holds when field
// has the given value.
func FieldEquals(field string, want any) func(Values) bool {
	return func(all Values) bool {
		v, ok := all[field]
		return ok && equals(v, want)
	}
}
