package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vango-dev/formstate/internal/errors"
)

// Rule is a declarative validator description, as found in form schemas
// and `validate` struct tags.
type Rule struct {
	// Name selects the validator (required, minLength, email, matches, ...).
	Name string

	// Message overrides the default failure message.
	Message string

	// Arg is the scalar parameter: a length, bound, pattern, or field name.
	Arg string

	// List is the parameter of list rules (oneOf, accept).
	List []string
}

// RuleNames lists every rule Build understands.
var RuleNames = []string{
	"required", "minLength", "maxLength", "pattern", "email", "url", "phone",
	"numeric", "min", "max", "oneOf", "minItems", "maxItems", "maxFileSize",
	"accept", "matches", "differs",
}

// Build returns the validator described by r.
func (r Rule) Build() (Validator, error) {
	switch r.Name {
	case "required":
		return Required(r.Message), nil
	case "email":
		return Email(r.Message), nil
	case "url":
		return URL(r.Message), nil
	case "phone":
		return Phone(r.Message), nil
	case "numeric":
		return Numeric(r.Message), nil
	case "minLength", "minlength", "minlen":
		n, err := r.intArg()
		if err != nil {
			return nil, err
		}
		return MinLength(n, r.Message), nil
	case "maxLength", "maxlength", "maxlen":
		n, err := r.intArg()
		if err != nil {
			return nil, err
		}
		return MaxLength(n, r.Message), nil
	case "minItems":
		n, err := r.intArg()
		if err != nil {
			return nil, err
		}
		return MinItems(n, r.Message), nil
	case "maxItems":
		n, err := r.intArg()
		if err != nil {
			return nil, err
		}
		return MaxItems(n, r.Message), nil
	case "maxFileSize":
		n, err := strconv.ParseInt(strings.TrimSpace(r.Arg), 10, 64)
		if err != nil {
			return nil, r.paramError("expected a byte count", err)
		}
		return MaxFileSize(n, r.Message), nil
	case "min", "max":
		n, err := strconv.ParseFloat(strings.TrimSpace(r.Arg), 64)
		if err != nil {
			return nil, r.paramError("expected a number", err)
		}
		if r.Name == "min" {
			return Min(n, r.Message), nil
		}
		return Max(n, r.Message), nil
	case "pattern", "regex":
		re, err := regexp.Compile(r.Arg)
		if err != nil {
			return nil, r.paramError("invalid regular expression", err)
		}
		msg := r.Message
		if msg == "" {
			msg = "Invalid format"
		}
		return matching(re, msg), nil
	case "oneOf":
		opts := r.list()
		if len(opts) == 0 {
			return nil, r.paramError("expected at least one option", nil)
		}
		return OneOf(opts, r.Message), nil
	case "accept":
		types := r.list()
		if len(types) == 0 {
			return nil, r.paramError("expected at least one file type", nil)
		}
		return AcceptFileTypes(types, r.Message), nil
	case "matches", "differs":
		if r.Arg == "" {
			return nil, r.paramError("expected a field name", nil)
		}
		if r.Name == "matches" {
			return FieldsMatch(r.Arg, r.Message), nil
		}
		return FieldsDiffer(r.Arg, r.Message), nil
	}
	return nil, errors.New("F101").WithDetail("rule " + strconv.Quote(r.Name))
}

func (r Rule) intArg() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.Arg))
	if err != nil {
		return 0, r.paramError("expected an integer", err)
	}
	return n, nil
}

// list returns List, or Arg split on "|" when List is empty.
func (r Rule) list() []string {
	if len(r.List) > 0 {
		return r.List
	}
	if r.Arg == "" {
		return nil
	}
	return strings.Split(r.Arg, "|")
}

func (r Rule) paramError(detail string, cause error) error {
	e := errors.New("F103").WithDetail(r.Name + ": " + detail)
	if cause != nil {
		e = e.Wrap(cause)
	}
	return e
}

// ParseTag parses a `validate` struct tag such as "required,minLength=2,matches=password".
// For string and list fields, min/max are read as minLength/maxLength and
// minItems/maxItems.
func ParseTag(tag string, lengthy, list bool) ([]Rule, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, nil
	}
	var rules []Rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, _ := strings.Cut(part, "=")
		switch {
		case list && name == "min":
			name = "minItems"
		case list && name == "max":
			name = "maxItems"
		case lengthy && name == "min":
			name = "minLength"
		case lengthy && name == "max":
			name = "maxLength"
		}
		rules = append(rules, Rule{Name: name, Arg: arg})
	}
	return rules, nil
}

// BuildAll builds every rule in order.
func BuildAll(rules []Rule) ([]Validator, error) {
	out := make([]Validator, 0, len(rules))
	for _, r := range rules {
		v, err := r.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
