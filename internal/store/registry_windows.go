//go:build windows

package store

import (
	"context"
	"errors"
	"iter"
	"sort"

	"golang.org/x/sys/windows/registry"
)

// Registry is a Store over HKEY_CURRENT_USER.
type Registry struct {
	root registry.Key
}

var _ Store = (*Registry)(nil)

// OpenRegistry returns a Store rooted at HKEY_CURRENT_USER.
func OpenRegistry() *Registry {
	return &Registry{root: registry.CURRENT_USER}
}

func mapRegistryErr(op, path, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, registry.ErrNotExist) {
		return &Error{Op: op, Path: path, Name: name, Err: ErrNotFound}
	}
	return &Error{Op: op, Path: path, Name: name, Err: err}
}

func (r *Registry) CreateKey(_ context.Context, path string) (Key, error) {
	path = Clean(path)
	k, _, err := registry.CreateKey(r.root, path, registry.ALL_ACCESS)
	if err != nil {
		return nil, mapRegistryErr("create", path, "", err)
	}
	return &registryKey{k: k, path: path}, nil
}

func (r *Registry) OpenKey(_ context.Context, path string) (Key, error) {
	path = Clean(path)
	k, err := registry.OpenKey(r.root, path, registry.QUERY_VALUE|registry.SET_VALUE|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, mapRegistryErr("open", path, "", err)
	}
	return &registryKey{k: k, path: path}, nil
}

func (r *Registry) DeleteKeyTree(_ context.Context, path string) error {
	path = Clean(path)
	err := deleteTree(r.root, path)
	if errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	return mapRegistryErr("delete-tree", path, "", err)
}

// deleteTree removes children first; RegDeleteKey refuses keys with subkeys.
func deleteTree(parent registry.Key, path string) error {
	k, err := registry.OpenKey(parent, path, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if err != nil {
		return err
	}
	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		_ = k.Close()
		return err
	}
	for _, name := range names {
		if err := deleteTree(k, name); err != nil && !errors.Is(err, registry.ErrNotExist) {
			_ = k.Close()
			return err
		}
	}
	if err := k.Close(); err != nil {
		return err
	}
	return registry.DeleteKey(parent, path)
}

func (r *Registry) Close() error { return nil }

type registryKey struct {
	k    registry.Key
	path string
}

func (k *registryKey) Path() string { return k.path }

func (k *registryKey) SetString(_ context.Context, name, value string) error {
	return mapRegistryErr("set", k.path, name, k.k.SetStringValue(name, value))
}

func (k *registryKey) SetStrings(_ context.Context, name string, values []string) error {
	return mapRegistryErr("set", k.path, name, k.k.SetStringsValue(name, values))
}

func (k *registryKey) read(name string) (Value, error) {
	_, typ, err := k.k.GetValue(name, nil)
	if err != nil {
		return Value{}, mapRegistryErr("get", k.path, name, err)
	}
	switch typ {
	case registry.MULTI_SZ:
		vals, _, err := k.k.GetStringsValue(name)
		if err != nil {
			return Value{}, mapRegistryErr("get", k.path, name, err)
		}
		return Value{Name: name, Kind: KindStrings, Strings: vals}, nil
	case registry.SZ, registry.EXPAND_SZ:
		val, _, err := k.k.GetStringValue(name)
		if err != nil {
			return Value{}, mapRegistryErr("get", k.path, name, err)
		}
		return Value{Name: name, Kind: KindString, Strings: []string{val}}, nil
	default:
		return Value{Name: name, Kind: KindString}, nil
	}
}

func (k *registryKey) GetString(_ context.Context, name string) (string, error) {
	v, err := k.read(name)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (k *registryKey) GetStrings(_ context.Context, name string) ([]string, error) {
	v, err := k.read(name)
	if err != nil {
		return nil, err
	}
	return v.Strings, nil
}

func (k *registryKey) DeleteValue(_ context.Context, name string) error {
	return mapRegistryErr("delete-value", k.path, name, k.k.DeleteValue(name))
}

func (k *registryKey) Values(_ context.Context) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		names, err := k.k.ReadValueNames(-1)
		if err != nil {
			yield(Value{}, mapRegistryErr("enum", k.path, "", err))
			return
		}
		sort.Strings(names)
		for _, name := range names {
			v, err := k.read(name)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (k *registryKey) SubKeyNames(_ context.Context) ([]string, error) {
	names, err := k.k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, mapRegistryErr("enum", k.path, "", err)
	}
	sort.Strings(names)
	return names, nil
}

func (k *registryKey) Close() error { return k.k.Close() }
