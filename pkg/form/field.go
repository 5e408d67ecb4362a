package form

import (
	"io"

	"github.com/vango-dev/formstate/pkg/validate"
)

// Values maps field names to their current values.
type Values = validate.Values

// FieldConfig is the registration data of one field.
type FieldConfig struct {
	// Kind selects the value type and the kind's implicit checks.
	Kind FieldKind

	// Validators run in order; the first failure becomes the field error.
	Validators []validate.Validator

	// DefaultValue is the value of a newly registered field. Nil selects
	// the kind's zero value.
	DefaultValue any
}

// field is a registered field.
type field struct {
	name      string
	config    FieldConfig
	validator validate.Validator
}

func newField(name string, cfg FieldConfig) *field {
	vs := make([]validate.Validator, 0, len(cfg.Validators)+1)
	vs = append(vs, cfg.Validators...)
	vs = append(vs, cfg.Kind.rules()...)
	return &field{
		name:      name,
		config:    cfg,
		validator: validate.Compose(vs...),
	}
}

func (f *field) defaultValue() any {
	if f.config.DefaultValue != nil {
		return f.config.DefaultValue
	}
	return f.config.Kind.ZeroValue()
}

// FileValue is the value of a file field.
type FileValue struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Len  int64  `json:"size"`

	// Open returns the file contents. It may be nil when only metadata
	// is known.
	Open func() (io.ReadCloser, error) `json:"-"`
}

func (f *FileValue) Filename() string    { return f.Name }
func (f *FileValue) Size() int64         { return f.Len }
func (f *FileValue) ContentType() string { return f.Type }
