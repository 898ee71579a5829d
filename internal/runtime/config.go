package runtime

import (
	"github.com/rs/zerolog"

	"aiconfig/internal/callback"
	"aiconfig/internal/registry"
	"aiconfig/internal/resolver"
)

// Config holds the collaborators of a Runtime. Zero values are replaced by
// defaults in New.
type Config struct {
	// Parser registry; defaults to registry.Default().
	Registry *registry.Registry
	// Lifecycle event dispatch; defaults to a manager with no handlers.
	Callbacks *callback.Manager
	// Structured logger; the zero value logs nothing.
	Logger zerolog.Logger
	// Parsed template cache size; defaults to resolver.DefaultCacheSize.
	TemplateCacheSize int
}

func (c Config) withDefaults() Config {
	if c.Registry == nil {
		c.Registry = registry.Default()
	}
	if c.Callbacks == nil {
		c.Callbacks = callback.NewManager(c.Logger)
	}
	if c.TemplateCacheSize <= 0 {
		c.TemplateCacheSize = resolver.DefaultCacheSize
	}
	return c
}
