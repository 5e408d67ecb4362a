package schema

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/formstate/internal/errors"
)

// LoadFile reads and parses one schema file.
func LoadFile(filename string) (*Schema, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New("F106").WithDetail(filename).Wrap(err)
	}
	return Parse(data, filename)
}

// Registry holds schemas by form ID.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// LoadDir parses every .yaml, .yml and .json file under dir.
func LoadDir(dir string) (*Registry, error) {
	return load(os.DirFS(dir), func(p string) string { return filepath.Join(dir, filepath.FromSlash(p)) })
}

// LoadFS parses every schema file in fsys. A nil fsys yields an empty
// registry.
func LoadFS(fsys fs.FS) (*Registry, error) {
	return load(fsys, func(p string) string { return p })
}

func load(fsys fs.FS, source func(string) string) (*Registry, error) {
	r := NewRegistry()
	if fsys == nil {
		return r, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isSchemaFile(p) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.New("F100").WithDetail(source(p)).Wrap(err)
		}
		s, err := Parse(data, source(p))
		if err != nil {
			return err
		}
		return r.Add(s)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func isSchemaFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Add stores s under its ID.
func (r *Registry) Add(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.schemas[s.ID]; ok {
		return errors.New("F107").WithDetail(s.ID + " in " + prev.Source + " and " + s.Source)
	}
	r.schemas[s.ID] = s
	return nil
}

// Get returns the schema with the given ID.
func (r *Registry) Get(id string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	if !ok {
		return nil, errors.New("F106").WithDetail("form " + quote(id))
	}
	return s, nil
}

// IDs returns the registered form IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

func quote(s string) string {
	return `"` + s + `"`
}

// Replace swaps in the schemas of other. Forms already created from the
// old schemas keep them.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	schemas := make(map[string]*Schema, len(other.schemas))
	for id, s := range other.schemas {
		schemas[id] = s
	}
	other.mu.RUnlock()

	r.mu.Lock()
	r.schemas = schemas
	r.mu.Unlock()
}
