package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vango-dev/formstate/pkg/validate"
)

// KindTag discriminates FieldKind.
type KindTag uint8

const (
	KindText KindTag = iota
	KindEmail
	KindPassword
	KindTextarea
	KindNumber
	KindSelect
	KindRadio
	KindCheckbox
	KindCheckboxGroup
	KindFile
)

var kindNames = [...]string{
	KindText:          "text",
	KindEmail:         "email",
	KindPassword:      "password",
	KindTextarea:      "textarea",
	KindNumber:        "number",
	KindSelect:        "select",
	KindRadio:         "radio",
	KindCheckbox:      "checkbox",
	KindCheckboxGroup: "checkboxGroup",
	KindFile:          "file",
}

// String returns the schema name of the tag.
func (t KindTag) String() string {
	if int(t) < len(kindNames) {
		return kindNames[t]
	}
	return fmt.Sprintf("KindTag(%d)", t)
}

// ParseKindTag returns the tag for a schema kind name.
func ParseKindTag(name string) (KindTag, bool) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return KindTag(i), true
		}
	}
	return 0, false
}

// Choice is one option of a select, radio, or checkbox group.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// FieldKind describes what a field holds. Select, Radio, and CheckboxGroup
// carry their choices; the other kinds carry nothing.
//
// Value types by kind:
//
//	Text, Email, Password, Textarea, Number, Select, Radio  string
//	Checkbox                                                bool
//	CheckboxGroup                                           []string
//	File                                                    *FileValue
type FieldKind struct {
	tag     KindTag
	choices []Choice
}

func Text() FieldKind     { return FieldKind{tag: KindText} }
func Email() FieldKind    { return FieldKind{tag: KindEmail} }
func Password() FieldKind { return FieldKind{tag: KindPassword} }
func Textarea() FieldKind { return FieldKind{tag: KindTextarea} }
func Number() FieldKind   { return FieldKind{tag: KindNumber} }
func Checkbox() FieldKind { return FieldKind{tag: KindCheckbox} }
func File() FieldKind     { return FieldKind{tag: KindFile} }

func Select(choices ...Choice) FieldKind { return FieldKind{tag: KindSelect, choices: choices} }
func Radio(choices ...Choice) FieldKind  { return FieldKind{tag: KindRadio, choices: choices} }

func CheckboxGroup(choices ...Choice) FieldKind {
	return FieldKind{tag: KindCheckboxGroup, choices: choices}
}

// KindOf builds a FieldKind from a tag and optional choices.
func KindOf(tag KindTag, choices ...Choice) FieldKind {
	switch tag {
	case KindSelect, KindRadio, KindCheckboxGroup:
		return FieldKind{tag: tag, choices: choices}
	}
	return FieldKind{tag: tag}
}

// Tag returns the kind's discriminator.
func (k FieldKind) Tag() KindTag { return k.tag }

// Choices returns a copy of the kind's options.
func (k FieldKind) Choices() []Choice {
	return append([]Choice(nil), k.choices...)
}

func (k FieldKind) String() string { return k.tag.String() }

// ZeroValue returns the value of an unset field of this kind.
func (k FieldKind) ZeroValue() any {
	switch k.tag {
	case KindText, KindEmail, KindPassword, KindTextarea, KindNumber, KindSelect, KindRadio:
		return ""
	case KindCheckbox:
		return false
	case KindCheckboxGroup:
		return []string{}
	case KindFile:
		return (*FileValue)(nil)
	}
	panic("form: unhandled field kind " + k.tag.String())
}

// rules returns the validators implied by the kind itself.
func (k FieldKind) rules() []validate.Validator {
	switch k.tag {
	case KindEmail:
		return []validate.Validator{validate.Email("")}
	case KindNumber:
		return []validate.Validator{validate.Custom(func(value any, _ validate.Values) string {
			s, ok := value.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return ""
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return "Must be a number"
			}
			return ""
		})}
	case KindSelect, KindRadio, KindCheckboxGroup:
		if len(k.choices) == 0 {
			return nil
		}
		values := make([]string, len(k.choices))
		for i, c := range k.choices {
			values[i] = c.Value
		}
		return []validate.Validator{validate.OneOf(values, "Invalid selection")}
	case KindText, KindPassword, KindTextarea, KindCheckbox, KindFile:
		return nil
	}
	panic("form: unhandled field kind " + k.tag.String())
}

// Parse converts raw submitted strings into a value of this kind.
// File fields are not parsed from strings; Parse returns nil for them.
func (k FieldKind) Parse(raw []string) any {
	first := ""
	if len(raw) > 0 {
		first = raw[0]
	}
	switch k.tag {
	case KindText, KindEmail, KindPassword, KindTextarea, KindNumber, KindSelect, KindRadio:
		return first
	case KindCheckbox:
		switch strings.ToLower(strings.TrimSpace(first)) {
		case "on", "true", "1", "yes":
			return true
		}
		return false
	case KindCheckboxGroup:
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if r != "" {
				out = append(out, r)
			}
		}
		return out
	case KindFile:
		return (*FileValue)(nil)
	}
	panic("form: unhandled field kind " + k.tag.String())
}

// Coerce converts a value decoded from JSON or YAML into a value of this
// kind. Scalars go through Parse; lists must hold strings. File fields
// cannot be decoded this way.
func (k FieldKind) Coerce(v any) (any, error) {
	if k.tag == KindFile {
		return nil, fmt.Errorf("file fields need a multipart body")
	}
	switch x := v.(type) {
	case nil:
		return k.ZeroValue(), nil
	case bool:
		if k.tag == KindCheckbox {
			return x, nil
		}
		return k.Parse([]string{strconv.FormatBool(x)}), nil
	case string:
		return k.Parse([]string{x}), nil
	case float64:
		return k.Parse([]string{strconv.FormatFloat(x, 'f', -1, 64)}), nil
	case int:
		return k.Parse([]string{strconv.Itoa(x)}), nil
	case int64:
		return k.Parse([]string{strconv.FormatInt(x, 10)}), nil
	case uint64:
		return k.Parse([]string{strconv.FormatUint(x, 10)}), nil
	case []string:
		return k.Parse(x), nil
	case []any:
		raw := make([]string, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list items must be strings, got %T", item)
			}
			raw[i] = s
		}
		return k.Parse(raw), nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// Textual reports whether the kind holds free text that may need sanitizing.
func (k FieldKind) Textual() bool {
	switch k.tag {
	case KindText, KindEmail, KindPassword, KindTextarea, KindNumber:
		return true
	case KindSelect, KindRadio, KindCheckbox, KindCheckboxGroup, KindFile:
		return false
	}
	panic("form: unhandled field kind " + k.tag.String())
}
