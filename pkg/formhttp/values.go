package formhttp

import (
	"encoding/json"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
)

// sanitizer strips markup from free text.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer(policy *bluemonday.Policy) *sanitizer {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return &sanitizer{policy: policy}
}

// maxPasses bounds how many times text re-sanitizes a value.
const maxPasses = 8

// text removes tags from s. Entities are decoded before the policy runs,
// so encoded markup is stripped like literal markup, and the policy's own
// escapes are decoded after it so plain text such as "Q&A" survives
// unchanged. Stripping a tag can join its neighbours into new markup, so
// passes repeat until the value is stable. A value that never settles is
// dropped.
func (z *sanitizer) text(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	for i := 0; i < maxPasses; i++ {
		out := html.UnescapeString(z.policy.Sanitize(html.UnescapeString(s)))
		if out == s {
			return out
		}
		s = out
	}
	return ""
}

// apply sanitizes v when kind holds free text.
func (z *sanitizer) apply(kind form.FieldKind, v any) any {
	switch kind.Tag() {
	case form.KindText, form.KindTextarea:
		if s, ok := v.(string); ok {
			return z.text(s)
		}
	}
	return v
}

// fieldSet is the field registry values are decoded against.
type fieldSet interface {
	FieldNames() []string
	Kind(name string) (form.FieldKind, bool)
}

// readValues decodes the request body into values of the schema's fields.
// Only fields present in the body are returned.
func (s *Server) readValues(w http.ResponseWriter, r *http.Request, f fieldSet) (form.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		return s.readJSON(r.Body, f)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, errors.New("F140").WithDetail(err.Error())
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("F140").WithDetail(err.Error())
		}
	}

	values := make(form.Values)
	for _, name := range f.FieldNames() {
		kind, _ := f.Kind(name)
		if kind.Tag() == form.KindFile {
			if r.MultipartForm == nil {
				continue
			}
			if fhs := r.MultipartForm.File[name]; len(fhs) > 0 {
				values[name] = fileValue(fhs[0])
			}
			continue
		}
		raw, ok := r.PostForm[name]
		if !ok {
			continue
		}
		values[name] = s.sanitize.apply(kind, kind.Parse(raw))
	}
	return values, nil
}

func (s *Server) readJSON(body io.Reader, f fieldSet) (form.Values, error) {
	var raw map[string]any
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, errors.New("F140").WithDetail("invalid JSON body").Wrap(err)
	}
	values := make(form.Values, len(raw))
	for name, v := range raw {
		kind, ok := f.Kind(name)
		if !ok {
			continue
		}
		cv, err := s.coerce(kind, v)
		if err != nil {
			return nil, errors.New("F140").WithDetail("field " + strconv.Quote(name) + ": " + err.Error())
		}
		values[name] = cv
	}
	return values, nil
}

// coerce converts a decoded JSON value to the kind's value type and
// sanitizes it.
func (s *Server) coerce(kind form.FieldKind, v any) (any, error) {
	cv, err := kind.Coerce(v)
	if err != nil {
		return nil, err
	}
	return s.sanitize.apply(kind, cv), nil
}

// missingValue is the value of a field the browser left out of a submit.
// Unchecked boxes are never sent, so they read as their zero value.
func missingValue(kind form.FieldKind) (any, bool) {
	switch kind.Tag() {
	case form.KindCheckbox, form.KindCheckboxGroup:
		return kind.ZeroValue(), true
	}
	return nil, false
}

func fileValue(fh *multipart.FileHeader) *form.FileValue {
	return &form.FileValue{
		Name: fh.Filename,
		Type: fh.Header.Get("Content-Type"),
		Len:  fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}
