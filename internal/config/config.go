package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "formstate.json"

	// DefaultAddr is the default listen address of the form server.
	DefaultAddr = "localhost:8080"

	// DefaultSchemas is the default schema directory.
	DefaultSchemas = "forms"

	// DefaultUploads is the default directory for uploaded files.
	DefaultUploads = "uploads"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "formstate"
)

// Config represents the complete formstate.json configuration.
type Config struct {
	// Addr is the address the server listens on.
	Addr string `json:"addr,omitempty"`

	// Schemas is the directory holding form schemas.
	Schemas string `json:"schemas,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Validation sets the default form options.
	Validation ValidationConfig `json:"validation,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Uploads configures where file fields are stored.
	Uploads UploadsConfig `json:"uploads,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// File, when set, also receives JSON logs.
	File string `json:"file,omitempty"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Disabled turns off /metrics and metric collection.
	Disabled bool `json:"disabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// ValidationConfig contains the form options applied to every form.
// Schema options take precedence over unset flags here.
type ValidationConfig struct {
	OnChange *bool `json:"onChange,omitempty"`
	OnBlur   *bool `json:"onBlur,omitempty"`
	OnSubmit *bool `json:"onSubmit,omitempty"`

	// Timeout bounds each async validation (e.g., "5s"). Empty means none.
	Timeout string `json:"timeout,omitempty"`

	// ErrorMessage replaces the error of a failed async validator.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// MaxBodySize limits request bodies in bytes.
	MaxBodySize int64 `json:"maxBodySize,omitempty"`

	// PingInterval is the live session keepalive (e.g., "30s").
	PingInterval string `json:"pingInterval,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins accepted for live sessions besides the
	// server's own host.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// UploadsConfig configures file storage.
type UploadsConfig struct {
	// Dir is the local directory used when no bucket is set.
	Dir string `json:"dir,omitempty"`

	// MaxSize limits each file in bytes. Zero means no limit.
	MaxSize int64 `json:"maxSize,omitempty"`

	// S3 stores files in a bucket instead of Dir.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 settings.
type S3Config struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for formstate.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("F121").
				WithDetail("No formstate.json found in " + filepath.Dir(path))
		}
		return nil, errors.New("F120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("F120").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("F120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("F120").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Schemas == "" {
		c.Schemas = DefaultSchemas
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Server.MaxBodySize == 0 {
		c.Server.MaxBodySize = 10 << 20
	}
	if c.Server.PingInterval == "" {
		c.Server.PingInterval = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = DefaultUploads
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New("F123").WithDetail("addr " + c.Addr + ": " + err.Error())
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return errors.New("F123").WithDetail("log.level " + c.Log.Level)
	}
	if c.Server.MaxBodySize < 0 {
		return errors.New("F123").WithDetail("server.maxBodySize must not be negative")
	}
	if c.Uploads.MaxSize < 0 {
		return errors.New("F123").WithDetail("uploads.maxSize must not be negative")
	}
	for _, d := range []struct{ name, value string }{
		{"validation.timeout", c.Validation.Timeout},
		{"server.pingInterval", c.Server.PingInterval},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	} {
		if _, err := duration(d.value); err != nil {
			return errors.New("F122").WithDetail(d.name + " " + d.value).Wrap(err)
		}
	}
	return nil
}

// duration parses a non-negative duration. Empty is zero.
func duration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Newf(errors.CategoryConfig, "negative duration")
	}
	return d, nil
}

// LogLevel returns the configured log level, or info if it is invalid.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ValidationTimeout returns the async validation timeout.
func (c *Config) ValidationTimeout() time.Duration {
	d, _ := duration(c.Validation.Timeout)
	return d
}

// PingInterval returns the live session keepalive interval.
func (c *Config) PingInterval() time.Duration {
	d, _ := duration(c.Server.PingInterval)
	return d
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := duration(c.Server.ShutdownTimeout)
	return d
}

// FormOptions returns the form options the validation section sets.
func (c *Config) FormOptions() []form.Option {
	var opts []form.Option
	if v := c.Validation.OnChange; v != nil {
		opts = append(opts, form.WithValidateOnChange(*v))
	}
	if v := c.Validation.OnBlur; v != nil {
		opts = append(opts, form.WithValidateOnBlur(*v))
	}
	if v := c.Validation.OnSubmit; v != nil {
		opts = append(opts, form.WithValidateOnSubmit(*v))
	}
	if c.Validation.ErrorMessage != "" {
		opts = append(opts, form.WithValidatorErrorMessage(c.Validation.ErrorMessage))
	}
	if d := c.ValidationTimeout(); d > 0 {
		opts = append(opts, form.WithValidationTimeout(d))
	}
	return opts
}

// SchemasPath returns the absolute path to the schema directory.
func (c *Config) SchemasPath() string {
	return c.resolve(c.Schemas)
}

// UploadsPath returns the absolute path to the upload directory.
func (c *Config) UploadsPath() string {
	return c.resolve(c.Uploads.Dir)
}

// UseS3 reports whether uploads go to S3.
func (c *Config) UseS3() bool {
	return c.Uploads.S3.Bucket != ""
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing formstate.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("F121").
				WithDetail("No formstate.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent holding formstate.json.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
