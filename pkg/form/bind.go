package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/validate"
)

// StructField is a field derived from a struct.
type StructField struct {
	Name   string
	Config FieldConfig
}

var fileValueType = reflect.TypeOf((*FileValue)(nil))

// FieldsOf derives field configs from the exported fields of a struct.
//
// The `form` tag names the field (default: lowercased Go name; "-" skips
// it), `kind` overrides the inferred kind, and `validate` lists rules:
//
//	type Signup struct {
//	    Email    string `form:"email" kind:"email" validate:"required"`
//	    Password string `form:"password" kind:"password" validate:"required,min=8"`
//	    Confirm  string `form:"confirm" kind:"password" validate:"matches=password"`
//	    Plan     string `form:"plan" kind:"select" options:"free|pro"`
//	}
//
// The struct's field values become the default values. Nested structs are
// flattened with dotted names ("address.city").
func FieldsOf(v any) ([]StructField, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New("F004").WithDetail("nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.New("F004").WithDetail(fmt.Sprintf("got %T", v))
	}

	var out []StructField
	if err := collectFields(rv, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectFields(rv reflect.Value, prefix string, out *[]StructField) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name := sf.Tag.Get("form")
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		if name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := rv.Field(i)
		if sf.Type.Kind() == reflect.Struct {
			if err := collectFields(fv, name, out); err != nil {
				return err
			}
			continue
		}

		kind, err := kindFor(sf)
		if err != nil {
			return err
		}
		lengthy := kind.Textual() && kind.Tag() != KindNumber
		list := kind.Tag() == KindCheckboxGroup
		rules, err := validate.ParseTag(sf.Tag.Get("validate"), lengthy, list)
		if err != nil {
			return errors.New("F004").WithDetail("field " + quote(name)).Wrap(err)
		}
		validators, err := validate.BuildAll(rules)
		if err != nil {
			return errors.New("F004").WithDetail("field " + quote(name)).Wrap(err)
		}

		*out = append(*out, StructField{
			Name: name,
			Config: FieldConfig{
				Kind:         kind,
				Validators:   validators,
				DefaultValue: toFieldValue(kind, fv),
			},
		})
	}
	return nil
}

func kindFor(sf reflect.StructField) (FieldKind, error) {
	if tag := sf.Tag.Get("kind"); tag != "" {
		kt, ok := ParseKindTag(tag)
		if !ok {
			return FieldKind{}, errors.New("F102").WithDetail("kind " + quote(tag))
		}
		return KindOf(kt, choicesOf(sf.Tag.Get("options"))...), nil
	}

	switch {
	case sf.Type == fileValueType:
		return File(), nil
	case sf.Type.Kind() == reflect.Bool:
		return Checkbox(), nil
	case sf.Type.Kind() == reflect.Slice && sf.Type.Elem().Kind() == reflect.String:
		return CheckboxGroup(choicesOf(sf.Tag.Get("options"))...), nil
	case isNumberKind(sf.Type.Kind()):
		return Number(), nil
	case sf.Type.Kind() == reflect.String:
		return Text(), nil
	}
	return FieldKind{}, errors.New("F004").WithDetail(fmt.Sprintf("field %s has unsupported type %s", sf.Name, sf.Type))
}

// choicesOf parses an `options:"a|b|c"` tag.
func choicesOf(tag string) []Choice {
	if tag == "" {
		return nil
	}
	parts := strings.Split(tag, "|")
	out := make([]Choice, len(parts))
	for i, p := range parts {
		out[i] = Choice{Value: p}
	}
	return out
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toFieldValue converts a struct field value to the kind's value type.
func toFieldValue(kind FieldKind, fv reflect.Value) any {
	switch kind.Tag() {
	case KindNumber:
		if fv.IsZero() {
			return ""
		}
		return fmt.Sprint(fv.Interface())
	case KindCheckboxGroup:
		if fv.IsNil() {
			return []string{}
		}
	}
	return fv.Interface()
}

// Decode copies values into the struct pointed to by dst, converting
// number strings to the struct's numeric types. Unknown names are ignored.
func Decode(values Values, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.New("F004").WithDetail(fmt.Sprintf("Decode needs a non-nil struct pointer, got %T", dst))
	}
	return decodeInto(values, rv.Elem(), "")
}

func decodeInto(values Values, rv reflect.Value, prefix string) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("form")
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		if name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := rv.Field(i)
		if sf.Type.Kind() == reflect.Struct {
			if err := decodeInto(values, fv, name); err != nil {
				return err
			}
			continue
		}

		v, ok := values[name]
		if !ok || v == nil {
			continue
		}
		if err := assign(fv, v); err != nil {
			return errors.New("F004").WithDetail("field " + quote(name)).Wrap(err)
		}
	}
	return nil
}

func assign(fv reflect.Value, v any) error {
	if s, ok := v.(string); ok && isNumberKind(fv.Kind()) {
		s = strings.TrimSpace(s)
		if s == "" {
			fv.SetZero()
			return nil
		}
		switch {
		case fv.CanInt():
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			fv.SetInt(n)
		case fv.CanUint():
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return err
			}
			fv.SetUint(n)
		case fv.CanFloat():
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			fv.SetFloat(n)
		}
		return nil
	}

	nv := reflect.ValueOf(v)
	if nv.Type().AssignableTo(fv.Type()) {
		fv.Set(nv)
		return nil
	}
	if nv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(nv.Convert(fv.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, fv.Type())
}

// RegisterStruct registers every field FieldsOf derives from v.
func (f *Form) RegisterStruct(v any) error {
	fields, err := FieldsOf(v)
	if err != nil {
		return err
	}
	for _, sf := range fields {
		if err := f.RegisterField(sf.Name, sf.Config); err != nil {
			return err
		}
	}
	return nil
}
