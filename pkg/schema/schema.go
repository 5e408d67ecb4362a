package schema

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/validate"
)

// Schema is a parsed form definition.
type Schema struct {
	ID      string  `yaml:"id" json:"id"`
	Title   string  `yaml:"title,omitempty" json:"title,omitempty"`
	Options Options `yaml:"options,omitempty" json:"options,omitempty"`
	Fields  []Field `yaml:"fields" json:"fields"`

	// Source is the file the schema was read from.
	Source string `yaml:"-" json:"-"`

	compiled []compiledField
	timeout  time.Duration
}

// Options are the form options a schema may set. Unset flags keep the
// form defaults.
type Options struct {
	ValidateOnChange      *bool  `yaml:"validateOnChange,omitempty" json:"validateOnChange,omitempty"`
	ValidateOnBlur        *bool  `yaml:"validateOnBlur,omitempty" json:"validateOnBlur,omitempty"`
	ValidateOnSubmit      *bool  `yaml:"validateOnSubmit,omitempty" json:"validateOnSubmit,omitempty"`
	ValidatorErrorMessage string `yaml:"validatorErrorMessage,omitempty" json:"validatorErrorMessage,omitempty"`
	ValidationTimeout     string `yaml:"validationTimeout,omitempty" json:"validationTimeout,omitempty"`
}

// Field is one field definition.
type Field struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
	Options []Choice `yaml:"options,omitempty" json:"options,omitempty"`
	Rules   []Rule   `yaml:"rules,omitempty" json:"rules,omitempty"`

	line, column int
}

// Choice is an option of a select, radio, or checkbox group field. A bare
// scalar is read as a choice whose value is also its label.
type Choice form.Choice

func (c *Choice) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*c = Choice{Value: n.Value}
		return nil
	}
	return n.Decode((*form.Choice)(c))
}

// Rule is one validation rule of a field.
type Rule struct {
	Rule    string   `yaml:"rule" json:"rule"`
	Message string   `yaml:"message,omitempty" json:"message,omitempty"`
	Value   any      `yaml:"value,omitempty" json:"value,omitempty"`
	Field   string   `yaml:"field,omitempty" json:"field,omitempty"`
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`

	line, column int
}

type compiledField struct {
	name   string
	config form.FieldConfig
}

func (f *Field) UnmarshalYAML(n *yaml.Node) error {
	type plain Field
	if err := n.Decode((*plain)(f)); err != nil {
		return err
	}
	f.line, f.column = n.Line, n.Column
	return nil
}

// UnmarshalYAML accepts a bare rule name as well as a mapping.
func (r *Rule) UnmarshalYAML(n *yaml.Node) error {
	r.line, r.column = n.Line, n.Column
	if n.Kind == yaml.ScalarNode {
		r.Rule = n.Value
		return nil
	}
	type plain Rule
	line, column := r.line, r.column
	if err := n.Decode((*plain)(r)); err != nil {
		return err
	}
	r.line, r.column = line, column
	return nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// Parse parses and compiles a schema. source names the input in errors.
func Parse(data []byte, source string) (*Schema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("F100").WithDetail(source + " is empty")
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		e := errors.New("F100").WithDetail(source).Wrap(err)
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ := strconv.Atoi(m[1])
			locate(e, source, line, 0)
		}
		return nil, e
	}
	s.Source = source
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return nil, errors.New("F105").WithDetail(source)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) compile() error {
	if d := s.Options.ValidationTimeout; d != "" {
		timeout, err := time.ParseDuration(d)
		if err != nil || timeout < 0 {
			return errors.New("F122").WithDetail("validationTimeout " + strconv.Quote(d))
		}
		s.timeout = timeout
	}

	seen := make(map[string]bool, len(s.Fields))
	s.compiled = make([]compiledField, 0, len(s.Fields))
	for _, fd := range s.Fields {
		name := strings.TrimSpace(fd.Name)
		if name == "" {
			return locate(errors.New("F001"), s.Source, fd.line, fd.column)
		}
		if seen[name] {
			return locate(errors.New("F104").WithDetail("field "+strconv.Quote(name)), s.Source, fd.line, fd.column)
		}
		seen[name] = true

		cfg, err := s.compileField(fd)
		if err != nil {
			return err
		}
		s.compiled = append(s.compiled, compiledField{name: name, config: cfg})
	}
	return nil
}

func (s *Schema) compileField(fd Field) (form.FieldConfig, error) {
	kindName := fd.Kind
	if kindName == "" {
		kindName = "text"
	}
	tag, ok := form.ParseKindTag(kindName)
	if !ok {
		return form.FieldConfig{}, locate(errors.New("F102").WithDetail("kind "+strconv.Quote(kindName)), s.Source, fd.line, fd.column)
	}
	choices := make([]form.Choice, len(fd.Options))
	for i, c := range fd.Options {
		choices[i] = form.Choice(c)
	}
	kind := form.KindOf(tag, choices...)

	def, err := coerceDefault(kind, fd.Default)
	if err != nil {
		return form.FieldConfig{}, locate(errors.New("F108").WithDetail("field "+strconv.Quote(fd.Name)+": "+err.Error()), s.Source, fd.line, fd.column)
	}

	validators := make([]validate.Validator, 0, len(fd.Rules))
	for _, r := range fd.Rules {
		v, err := r.rule().Build()
		if err != nil {
			e := errors.FromError(err, "F101")
			return form.FieldConfig{}, locate(e, s.Source, r.line, r.column)
		}
		validators = append(validators, v)
	}

	return form.FieldConfig{Kind: kind, Validators: validators, DefaultValue: def}, nil
}

func (r Rule) rule() validate.Rule {
	out := validate.Rule{Name: r.Rule, Message: r.Message, List: r.Options}
	switch v := r.Value.(type) {
	case nil:
	case []any:
		for _, item := range v {
			out.List = append(out.List, fmt.Sprint(item))
		}
	default:
		out.Arg = fmt.Sprint(v)
	}
	if r.Field != "" {
		out.Arg = r.Field
	}
	return out
}

// coerceDefault converts a decoded default to the kind's value type.
func coerceDefault(kind form.FieldKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind.Tag() {
	case form.KindCheckbox:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want a boolean, got %v", v)
		}
		return b, nil
	case form.KindCheckboxGroup:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("want a list, got %v", v)
		}
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = fmt.Sprint(item)
		}
		return out, nil
	case form.KindFile:
		return nil, fmt.Errorf("file fields take no default")
	}
	switch v.(type) {
	case []any, map[string]any:
		return nil, fmt.Errorf("want a scalar, got %v", v)
	}
	return fmt.Sprint(v), nil
}

func locate(e *errors.Error, source string, line, column int) *errors.Error {
	if source == "" || line <= 0 {
		return e
	}
	return e.WithLocation(source, line, column)
}

// FieldNames returns the field names in definition order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.compiled))
	for i, c := range s.compiled {
		names[i] = c.name
	}
	return names
}

// Kind returns the compiled kind of a field.
func (s *Schema) Kind(name string) (form.FieldKind, bool) {
	for _, c := range s.compiled {
		if c.name == name {
			return c.config.Kind, true
		}
	}
	return form.FieldKind{}, false
}

// FormOptions returns the form options the schema sets, led by its ID.
func (s *Schema) FormOptions() []form.Option {
	opts := []form.Option{form.WithID(s.ID)}
	if v := s.Options.ValidateOnChange; v != nil {
		opts = append(opts, form.WithValidateOnChange(*v))
	}
	if v := s.Options.ValidateOnBlur; v != nil {
		opts = append(opts, form.WithValidateOnBlur(*v))
	}
	if v := s.Options.ValidateOnSubmit; v != nil {
		opts = append(opts, form.WithValidateOnSubmit(*v))
	}
	if s.Options.ValidatorErrorMessage != "" {
		opts = append(opts, form.WithValidatorErrorMessage(s.Options.ValidatorErrorMessage))
	}
	if s.timeout > 0 {
		opts = append(opts, form.WithValidationTimeout(s.timeout))
	}
	return opts
}

// Apply registers the schema's fields on f.
func (s *Schema) Apply(f *form.Form) error {
	for _, c := range s.compiled {
		if err := f.RegisterField(c.name, c.config); err != nil {
			return err
		}
	}
	return nil
}

// NewForm creates a form with the schema's options and fields. Options in
// extra are applied after the schema's own.
func (s *Schema) NewForm(extra ...form.Option) (*form.Form, error) {
	f := form.New(append(s.FormOptions(), extra...)...)
	if err := s.Apply(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
