package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendRegistry = "registry"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Open returns the store for backend. An empty backend selects the platform
// default. path is only used by the sqlite backend.
func Open(ctx context.Context, backend, path string) (Store, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	switch backend {
	case BackendRegistry:
		return openRegistry()
	case BackendSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite backend requires store.path")
		}
		return OpenSQLite(ctx, path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
