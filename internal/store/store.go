// Package store is a thin adapter over a hierarchical, per-user key-value store.
//
// Keys are addressed by backslash-separated paths relative to the user's root
// (HKEY_CURRENT_USER on Windows). A key holds named values; a value is either a
// single string or an ordered string sequence. Backends:
//   - registry: the Windows registry (windows builds only)
//   - sqlite:   a single SQLite file, used on every other platform
//   - memory:   an in-process map, used by tests
//
// No backend offers transactions spanning more than one call.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNotFound reports that a key or value does not exist.
var ErrNotFound = errors.New("not found")

// Error is a store failure with the operation and location that produced it.
type Error struct {
	Op   string
	Path string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("store %s %s [%s]: %v", e.Op, e.Path, e.Name, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind distinguishes single-string values from string sequences.
type Kind int

const (
	KindString Kind = iota
	KindStrings
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	default:
		return "unknown"
	}
}

// Value is a named value read from a key.
type Value struct {
	Name    string
	Kind    Kind
	Strings []string
}

// String returns the value as a single string. Sequences are joined with spaces.
func (v Value) String() string {
	if v.Kind == KindString && len(v.Strings) > 0 {
		return v.Strings[0]
	}
	return strings.Join(v.Strings, " ")
}

// Store opens, creates and deletes keys.
type Store interface {
	// CreateKey opens the key at path, creating it and any missing ancestors.
	CreateKey(ctx context.Context, path string) (Key, error)
	// OpenKey opens an existing key. It returns ErrNotFound if the key is absent.
	OpenKey(ctx context.Context, path string) (Key, error)
	// DeleteKeyTree removes the key, its descendants and all their values.
	// Deleting an absent key is not an error.
	DeleteKeyTree(ctx context.Context, path string) error
	Close() error
}

// Key is an open handle on a single key.
type Key interface {
	Path() string
	SetString(ctx context.Context, name, value string) error
	SetStrings(ctx context.Context, name string, values []string) error
	// GetString returns ErrNotFound if the value is absent.
	GetString(ctx context.Context, name string) (string, error)
	// GetStrings returns ErrNotFound if the value is absent. A single-string
	// value is returned as a one-element sequence.
	GetStrings(ctx context.Context, name string) ([]string, error)
	// DeleteValue returns ErrNotFound if the value is absent.
	DeleteValue(ctx context.Context, name string) error
	// Values lazily enumerates the key's values. Iteration stops at the first error.
	Values(ctx context.Context) iter.Seq2[Value, error]
	SubKeyNames(ctx context.Context) ([]string, error)
	Close() error
}

// Join builds a key path from its elements, skipping empty ones.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.Trim(e, `\`)
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}

// Clean normalises separators and strips leading/trailing/duplicate backslashes.
func Clean(path string) string {
	path = strings.ReplaceAll(path, "/", `\`)
	return Join(strings.Split(path, `\`)...)
}

// canonical is the case-folded form used to compare key paths.
func canonical(path string) string {
	return strings.ToLower(Clean(path))
}

// IsEmpty reports whether the key has no values.
func IsEmpty(ctx context.Context, k Key) (bool, error) {
	for _, err := range k.Values(ctx) {
		if err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func wrap(op, path, name string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Path: path, Name: name, Err: err}
}
