package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vango-dev/formstate/pkg/form"
)

// ErrTooLarge is returned when a file exceeds the store's size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrNoContent is returned for a file value without an Open function.
var ErrNoContent = errors.New("upload: file has no content")

// Store is a destination for submitted files.
type Store interface {
	// Put writes the contents of r under key and returns where it went.
	Put(ctx context.Context, key string, meta Meta, r io.Reader) (*Stored, error)

	// Delete removes a file an earlier Put stored.
	Delete(ctx context.Context, stored *Stored) error
}

// Meta describes a file being stored.
type Meta struct {
	Filename    string
	ContentType string
	Size        int64
}

// Stored is a file that was written to a Store.
type Stored struct {
	// Field is the form field the file came from.
	Field string `json:"field"`

	// Key is the store key.
	Key string `json:"key"`

	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`

	// Location is a filesystem path or an object URL, depending on the store.
	Location string `json:"location,omitempty"`
}

// Persist writes every non-nil *form.FileValue in values to store under
// "<formID>/<field>/<random id><ext>". Fields are stored in name order.
// The first failure stops the run and deletes the files already stored,
// so a failed Persist leaves nothing behind.
func Persist(ctx context.Context, store Store, formID string, values form.Values) (map[string]*Stored, error) {
	names := make([]string, 0, len(values))
	for name, v := range values {
		if fv, ok := v.(*form.FileValue); ok && fv != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make(map[string]*Stored, len(names))
	for _, name := range names {
		err := ctx.Err()
		if err == nil {
			var stored *Stored
			stored, err = persistOne(ctx, store, formID, name, values[name].(*form.FileValue))
			if err == nil {
				out[name] = stored
				continue
			}
		}
		return nil, errors.Join(err, discard(store, out))
	}
	return out, nil
}

// discard deletes stored files. The request context may already be done,
// so it runs on a fresh one.
func discard(store Store, stored map[string]*Stored) error {
	ctx := context.Background()
	var errs []error
	for _, s := range stored {
		if err := store.Delete(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", s.Key, err))
		}
	}
	return errors.Join(errs...)
}

func persistOne(ctx context.Context, store Store, formID, field string, fv *form.FileValue) (*Stored, error) {
	if fv.Open == nil {
		return nil, ErrNoContent
	}
	rc, err := fv.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	key := path.Join(formID, field, newID()+strings.ToLower(path.Ext(fv.Name)))
	stored, err := store.Put(ctx, key, Meta{Filename: fv.Name, ContentType: fv.Type, Size: fv.Len}, rc)
	if err != nil {
		return nil, err
	}
	stored.Field = field
	return stored, nil
}

func newID() string {
	return uuid.NewString()
}

// limit copies r through a reader that fails with ErrTooLarge past max
// bytes. A max of 0 means no limit.
func limit(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitedReader{r: io.LimitReader(r, max+1), max: max}
}

type limitedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, ErrTooLarge
	}
	return n, err
}
