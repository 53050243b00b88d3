package mapping

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/c360/fileingest/errors"
)

// KV is the narrow key-value surface the registry needs from its backing
// store. The natsclient KVStore satisfies it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)
	IsNotFound(err error) bool
}

// KVRegistry stores mapping configurations in a shared key-value bucket so
// horizontally scaled pipeline instances observe the same mappings. Fetch
// errors are logged and degrade to the default configuration; they are never
// surfaced to the pipeline.
type KVRegistry struct {
	kv     KV
	logger *slog.Logger
}

// NewKVRegistry creates a registry backed by the given bucket
func NewKVRegistry(kv KV, logger *slog.Logger) *KVRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVRegistry{kv: kv, logger: logger}
}

// Get returns the named configuration, degrading to default on any failure
func (r *KVRegistry) Get(ctx context.Context, name string) *Config {
	data, err := r.kv.Get(ctx, name)
	if err != nil {
		if !r.kv.IsNotFound(err) {
			r.logger.Error("Mapping configuration fetch failed, using default",
				"component", "KVRegistry",
				"requested", name,
				"error", err)
		} else if name != DefaultName {
			r.logger.Debug("Mapping configuration not found, using default",
				"component", "KVRegistry",
				"requested", name)
		}
		return r.defaultOrFallback(ctx)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		r.logger.Error("Stored mapping configuration is corrupt, using default",
			"component", "KVRegistry",
			"requested", name,
			"error", err)
		return r.defaultOrFallback(ctx)
	}

	return &cfg
}

// defaultOrFallback fetches the stored default configuration, falling back
// to the canonical built-in when even that fails
func (r *KVRegistry) defaultOrFallback(ctx context.Context) *Config {
	data, err := r.kv.Get(ctx, DefaultName)
	if err != nil {
		return DefaultConfig()
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig()
	}
	return &cfg
}

// Upsert creates or replaces a configuration in the bucket
func (r *KVRegistry) Upsert(ctx context.Context, name string, cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "KVRegistry", "Upsert", "nil configuration")
	}
	stored := cfg.Clone()
	stored.Name = name
	if err := stored.Validate(); err != nil {
		return errors.WrapInvalid(err, "KVRegistry", "Upsert", "configuration validation")
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return errors.WrapInvalid(err, "KVRegistry", "Upsert", "marshal configuration")
	}

	if err := r.kv.Put(ctx, name, data); err != nil {
		return errors.WrapTransient(err, "KVRegistry", "Upsert", "write configuration")
	}
	return nil
}

// ListAll returns every stored configuration, materializing and persisting
// the default when the bucket is empty
func (r *KVRegistry) ListAll(ctx context.Context) (map[string]*Config, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil && !r.kv.IsNotFound(err) {
		return nil, errors.WrapTransient(err, "KVRegistry", "ListAll", "list keys")
	}

	if len(keys) == 0 {
		def := DefaultConfig()
		if err := r.Upsert(ctx, DefaultName, def); err != nil {
			r.logger.Error("Failed to materialize default mapping configuration",
				"component", "KVRegistry",
				"error", err)
		}
		return map[string]*Config{DefaultName: def}, nil
	}

	all := make(map[string]*Config, len(keys))
	for _, key := range keys {
		data, err := r.kv.Get(ctx, key)
		if err != nil {
			if r.kv.IsNotFound(err) {
				continue // deleted between listing and fetch
			}
			return nil, errors.WrapTransient(err, "KVRegistry", "ListAll", "fetch "+key)
		}
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			r.logger.Error("Skipping corrupt mapping configuration",
				"component", "KVRegistry",
				"name", key,
				"error", err)
			continue
		}
		all[key] = &cfg
	}
	return all, nil
}
