package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/formstate/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.Schemas != DefaultSchemas {
		t.Errorf("Schemas = %q, want %q", cfg.Schemas, DefaultSchemas)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.PingInterval() != 30*time.Second {
		t.Errorf("PingInterval = %v, want 30s", cfg.PingInterval())
	}
	if cfg.ShutdownTimeout() != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate should pass for defaults: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New("F121")) {
		t.Errorf("Expected F121 for missing config, got %v", err)
	}

	configJSON := `{
  "addr": ":9090",
  "schemas": "defs",
  "log": {"level": "debug"},
  "validation": {"onChange": false, "timeout": "2s", "errorMessage": "Try again"},
  "uploads": {"maxSize": 1024, "s3": {"bucket": "forms", "prefix": "in/"}}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9090")
	}
	if got := cfg.SchemasPath(); got != filepath.Join(tmpDir, "defs") {
		t.Errorf("SchemasPath = %q, want %q", got, filepath.Join(tmpDir, "defs"))
	}
	if got := cfg.UploadsPath(); got != filepath.Join(tmpDir, DefaultUploads) {
		t.Errorf("UploadsPath = %q", got)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel())
	}
	if cfg.ValidationTimeout() != 2*time.Second {
		t.Errorf("ValidationTimeout = %v, want 2s", cfg.ValidationTimeout())
	}
	if !cfg.UseS3() || cfg.Uploads.S3.Prefix != "in/" {
		t.Errorf("Uploads.S3 = %+v", cfg.Uploads.S3)
	}
	if got := len(cfg.FormOptions()); got != 3 {
		t.Errorf("FormOptions len = %d, want 3", got)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)

	// Write invalid JSON
	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "F120") {
		t.Errorf("Expected F120 error, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   string
	}{
		{"bad addr", func(c *Config) { c.Addr = "nope" }, "F123"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "F123"},
		{"negative body", func(c *Config) { c.Server.MaxBodySize = -1 }, "F123"},
		{"negative upload", func(c *Config) { c.Uploads.MaxSize = -1 }, "F123"},
		{"bad timeout", func(c *Config) { c.Validation.Timeout = "soon" }, "F122"},
		{"negative ping", func(c *Config) { c.Server.PingInterval = "-1s" }, "F122"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if !stderrors.Is(err, errors.New(tt.code)) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadFile_Validates(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte(`{"server": {"shutdownTimeout": "forever"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(configPath); !stderrors.Is(err, errors.New("F122")) {
		t.Errorf("LoadFile() = %v, want F122", err)
	}
}

func TestSaveTo(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := New()
	cfg.Addr = ":7070"
	cfg.Uploads.S3.Bucket = "b"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path = %q, want %q", cfg.Path(), configPath)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Addr != ":7070" {
		t.Errorf("Addr = %q, want %q", loaded.Addr, ":7070")
	}
	if loaded.Uploads.S3.Bucket != "b" {
		t.Errorf("S3.Bucket = %q, want %q", loaded.Uploads.S3.Bucket, "b")
	}
}

func TestPaths_Absolute(t *testing.T) {
	cfg := New()
	cfg.Schemas = "/srv/forms"
	if got := cfg.SchemasPath(); got != "/srv/forms" {
		t.Errorf("SchemasPath absolute = %q, want %q", got, "/srv/forms")
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should be false for empty directory")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should be true after creating config")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Should fail when no config exists
	if _, err := FindProjectRoot(nestedDir); err == nil {
		t.Error("FindProjectRoot should fail when no config exists")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nestedDir)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
}
