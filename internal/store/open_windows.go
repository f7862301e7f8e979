//go:build windows

package store

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = BackendRegistry

func openRegistry() (Store, error) { return OpenRegistry(), nil }
