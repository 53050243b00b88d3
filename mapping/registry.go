package mapping

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/fileingest/errors"
)

// Registry stores named mapping configurations. Get never fails the caller:
// an unknown name or a backing-store error degrades to the default
// configuration. Implementations must return immutable snapshots so
// concurrent readers are safe against an in-flight Upsert.
type Registry interface {
	// Get returns the named configuration, or the default configuration
	// when the name is absent or the backing store misbehaves. Never nil.
	Get(ctx context.Context, name string) *Config

	// Upsert creates or replaces a configuration, keyed by name. Idempotent.
	Upsert(ctx context.Context, name string, cfg *Config) error

	// ListAll returns every stored configuration keyed by name. When the
	// backing store is empty, the canonical default is materialized,
	// persisted, and returned.
	ListAll(ctx context.Context) (map[string]*Config, error)
}

// MemoryRegistry is an in-memory Registry for single-process deployments
// and tests
type MemoryRegistry struct {
	mu      sync.RWMutex
	configs map[string]*Config
	logger  *slog.Logger
}

// NewMemoryRegistry creates an in-memory registry pre-seeded with the
// default configuration
func NewMemoryRegistry(logger *slog.Logger) *MemoryRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryRegistry{
		configs: map[string]*Config{DefaultName: DefaultConfig()},
		logger:  logger,
	}
}

// Get returns a snapshot of the named configuration, degrading to default
func (r *MemoryRegistry) Get(_ context.Context, name string) *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.configs[name]; ok {
		return cfg.Clone()
	}

	if name != DefaultName {
		r.logger.Debug("Mapping configuration not found, using default",
			"component", "MemoryRegistry",
			"requested", name)
	}

	if cfg, ok := r.configs[DefaultName]; ok {
		return cfg.Clone()
	}
	return DefaultConfig()
}

// Upsert creates or replaces a configuration
func (r *MemoryRegistry) Upsert(_ context.Context, name string, cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "MemoryRegistry", "Upsert", "nil configuration")
	}
	stored := cfg.Clone()
	stored.Name = name
	if err := stored.Validate(); err != nil {
		return errors.WrapInvalid(err, "MemoryRegistry", "Upsert", "configuration validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = stored
	return nil
}

// ListAll returns snapshots of every stored configuration
func (r *MemoryRegistry) ListAll(_ context.Context) (map[string]*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.configs) == 0 {
		r.configs[DefaultName] = DefaultConfig()
	}

	all := make(map[string]*Config, len(r.configs))
	for name, cfg := range r.configs {
		all[name] = cfg.Clone()
	}
	return all, nil
}
