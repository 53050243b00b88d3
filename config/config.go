// Package config loads the application configuration from a YAML file with
// environment variable overrides. Defaults are usable out of the box for
// local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/report"
	"github.com/c360/fileingest/source"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "FILEINGEST"

// Source modes
const (
	SourceModeObject = "object" // S3-compatible object storage
	SourceModeFile   = "file"   // local directory
	SourceModeMemory = "memory" // in-process, for tests
)

// Duration wraps time.Duration with YAML string parsing ("30s", "2m")
type Duration time.Duration

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete application configuration
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	NATS     NATSConfig     `yaml:"nats"`
	Storage  StorageConfig  `yaml:"storage"`
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServiceConfig identifies the running instance
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// HTTPConfig configures the HTTP surface
type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// NATSConfig configures the messaging backend. Disabled means reports go to
// the log and mappings live in memory.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	MappingBucket string        `yaml:"mapping_bucket"`
	Report        report.Config `yaml:"report"`
}

// StorageConfig configures the record store
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// SourceConfig selects and configures the file fetcher
type SourceConfig struct {
	Mode        string                   `yaml:"mode"`
	BaseDir     string                   `yaml:"base_dir,omitempty"`
	ObjectStore source.ObjectStoreConfig `yaml:"object_store,omitempty"`
}

// PipelineConfig bounds pipeline execution
type PipelineConfig struct {
	StageTimeout Duration `yaml:"stage_timeout"`
}

// Default returns the development defaults
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "fileingest",
			Environment: "dev",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			MappingBucket: "field-mappings",
			Report:        report.DefaultConfig(),
		},
		Storage: StorageConfig{
			DSN: "fileingest.db",
		},
		Source: SourceConfig{
			Mode:    SourceModeFile,
			BaseDir: "uploads",
		},
		Pipeline: PipelineConfig{
			StageTimeout: Duration(30 * time.Second),
		},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates the result. An empty path loads defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "read "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "parse "+path)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides individual fields from the environment
func (c *Config) applyEnvOverrides() {
	setString := func(key string, target *string) {
		if v, ok := os.LookupEnv(EnvPrefix + "_" + key); ok {
			*target = v
		}
	}
	setBool := func(key string, target *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + "_" + key); ok {
			if parsed, err := strconv.ParseBool(v); err == nil {
				*target = parsed
			}
		}
	}

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("HTTP_ADDR", &c.HTTP.Addr)
	setBool("NATS_ENABLED", &c.NATS.Enabled)
	setString("NATS_URL", &c.NATS.URL)
	setString("NATS_USERNAME", &c.NATS.Username)
	setString("NATS_PASSWORD", &c.NATS.Password)
	setString("NATS_TOKEN", &c.NATS.Token)
	setString("NATS_MAPPING_BUCKET", &c.NATS.MappingBucket)
	setString("STORAGE_DSN", &c.Storage.DSN)
	setString("SOURCE_MODE", &c.Source.Mode)
	setString("SOURCE_BASE_DIR", &c.Source.BaseDir)
	setString("SOURCE_ENDPOINT", &c.Source.ObjectStore.Endpoint)
	setString("SOURCE_ACCESS_KEY", &c.Source.ObjectStore.AccessKey)
	setString("SOURCE_SECRET_KEY", &c.Source.ObjectStore.SecretKey)
	setString("SOURCE_BUCKET", &c.Source.ObjectStore.Bucket)
	setBool("SOURCE_USE_SSL", &c.Source.ObjectStore.UseSSL)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"log.level must be debug, info, warn, or error")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"log.format must be text or json")
	}

	if c.HTTP.Addr == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"http.addr is required")
	}

	if c.Storage.DSN == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"storage.dsn is required")
	}

	switch c.Source.Mode {
	case SourceModeObject:
		if c.Source.ObjectStore.Endpoint == "" || c.Source.ObjectStore.Bucket == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"source.object_store endpoint and bucket are required in object mode")
		}
	case SourceModeFile:
		if c.Source.BaseDir == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
				"source.base_dir is required in file mode")
		}
	case SourceModeMemory:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"source.mode must be object, file, or memory")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"nats.url is required when nats is enabled")
	}

	if c.Pipeline.StageTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"pipeline.stage_timeout must be positive")
	}

	return nil
}
