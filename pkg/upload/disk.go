package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DiskStore stores files under a local directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a DiskStore rooted at dir.
//
// Parameters:
//   - dir: Directory to store files in (created if missing)
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Put writes r to dir/key and a metadata file next to it.
func (s *DiskStore) Put(ctx context.Context, key string, meta Meta, r io.Reader) (*Stored, error) {
	if s.maxSize > 0 && meta.Size > s.maxSize {
		return nil, ErrTooLarge
	}

	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	written, err := io.Copy(f, limit(r, s.maxSize))
	if err != nil {
		os.Remove(p)
		return nil, err
	}

	dm := diskMeta{
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}
	if err := s.saveMeta(p, dm); err != nil {
		os.Remove(p)
		return nil, err
	}

	return &Stored{
		Key:         key,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        written,
		Location:    p,
	}, nil
}

// Delete removes a stored file and its metadata. A missing file is not an
// error.
func (s *DiskStore) Delete(_ context.Context, stored *Stored) error {
	p := filepath.Join(s.dir, filepath.FromSlash(stored.Key))
	for _, name := range []string{p, metaPath(p)} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Cleanup removes files older than maxAge.
func (s *DiskStore) Cleanup(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	return filepath.WalkDir(s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(p)
		}
		return nil
	})
}

func metaPath(p string) string {
	return p + ".meta"
}

func (s *DiskStore) saveMeta(p string, meta diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath(p), data, 0644)
}
