package validate

import "testing"

func TestFieldsMatch(t *testing.T) {
	v := FieldsMatch("password", "no match")

	if r := v.Validate("a", Values{"password": "a", "confirm": "a"}); !r.Valid() {
		t.Errorf("matching values should pass, got %q", r.Message())
	}
	if r := v.Validate("b", Values{"password": "a", "confirm": "b"}); r.Message() != "no match" {
		t.Errorf("mismatch = %q, want %q", r.Message(), "no match")
	}
	if r := v.Validate("a", Values{"confirm": "a"}); r.Message() != "no match" {
		t.Errorf("missing sibling = %q, want %q", r.Message(), "no match")
	}
}

func TestFieldsDiffer(t *testing.T) {
	v := FieldsDiffer("old", "same")

	if r := v.Validate("x", Values{"new": "x"}); !r.Valid() {
		t.Errorf("missing sibling should pass, got %q", r.Message())
	}
	if r := v.Validate("x", Values{"old": "x"}); r.Message() != "same" {
		t.Errorf("equal values = %q, want %q", r.Message(), "same")
	}
	if r := v.Validate("y", Values{"old": "x"}); !r.Valid() {
		t.Errorf("different values should pass, got %q", r.Message())
	}
}

func TestValidateIf(t *testing.T) {
	v := ValidateIf(FieldEquals("contact", "phone"), Required("phone required"))

	if r := v.Validate("", Values{"contact": "email"}); !r.Valid() {
		t.Error("condition false: validator should not run")
	}
	if r := v.Validate("", Values{"contact": "phone"}); r.Message() != "phone required" {
		t.Errorf("condition true: got %q", r.Message())
	}
	if r := ValidateIf(nil, Required("")).Validate("", nil); !r.Valid() {
		t.Error("nil condition should never run the validator")
	}
}

func TestEquals(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{nil, nil, true},
		{nil, "", false},
		{"a", "a", true},
		{1, 1.0, true},
		{[]string{"a"}, []string{"a"}, true},
		{true, false, false},
	}
	for _, tt := range tests {
		if got := equals(tt.a, tt.b); got != tt.want {
			t.Errorf("equals(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
