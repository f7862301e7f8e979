//go:build !windows

package store

import "fmt"

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = BackendSQLite

func openRegistry() (Store, error) {
	return nil, fmt.Errorf("registry backend is only available on windows")
}
