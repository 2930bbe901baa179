package config

import (
	"context"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Extensions lists the file extensions the loader reads, with the
	// leading dot.
	Extensions() []string

	// Load reads the given files and translates them into the
	// format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
