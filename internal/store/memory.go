package store

import (
	"context"
	"iter"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	keys  map[string]*memKey
	fails map[faultKey]error
}

type memKey struct {
	path   string
	values map[string]Value
}

type faultKey struct {
	op   string
	path string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		keys:  make(map[string]*memKey),
		fails: make(map[faultKey]error),
	}
}

// FailOn makes every later op ("create", "open", "delete-tree", "set",
// "get", "delete-value", "enum") against path return err.
func (m *Memory) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[faultKey{op: op, path: canonical(path)}] = err
}

func (m *Memory) fault(op, path string) error {
	if err, ok := m.fails[faultKey{op: op, path: canonical(path)}]; ok {
		return &Error{Op: op, Path: path, Err: err}
	}
	return nil
}

func (m *Memory) CreateKey(_ context.Context, path string) (Key, error) {
	path = Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("create", path); err != nil {
		return nil, err
	}
	parts := strings.Split(path, `\`)
	for i := range parts {
		p := strings.Join(parts[:i+1], `\`)
		c := canonical(p)
		if _, ok := m.keys[c]; !ok {
			m.keys[c] = &memKey{path: p, values: make(map[string]Value)}
		}
	}
	return &memHandle{m: m, path: path}, nil
}

func (m *Memory) OpenKey(_ context.Context, path string) (Key, error) {
	path = Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("open", path); err != nil {
		return nil, err
	}
	if _, ok := m.keys[canonical(path)]; !ok {
		return nil, &Error{Op: "open", Path: path, Err: ErrNotFound}
	}
	return &memHandle{m: m, path: path}, nil
}

func (m *Memory) DeleteKeyTree(_ context.Context, path string) error {
	path = Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("delete-tree", path); err != nil {
		return err
	}
	c := canonical(path)
	for k := range m.keys {
		if k == c || strings.HasPrefix(k, c+`\`) {
			delete(m.keys, k)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Exists reports whether a key exists at path.
func (m *Memory) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[canonical(path)]
	return ok
}

// Dump returns a copy of every key and its values, keyed by canonical path.
func (m *Memory) Dump() map[string]map[string]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]Value, len(m.keys))
	for c, k := range m.keys {
		vals := make(map[string]Value, len(k.values))
		for name, v := range k.values {
			v.Strings = slices.Clone(v.Strings)
			vals[name] = v
		}
		out[c] = vals
	}
	return out
}

type memHandle struct {
	m    *Memory
	path string
}

func (h *memHandle) Path() string { return h.path }

// key must be called with h.m.mu held.
func (h *memHandle) key(op string) (*memKey, error) {
	if err := h.m.fault(op, h.path); err != nil {
		return nil, err
	}
	k, ok := h.m.keys[canonical(h.path)]
	if !ok {
		return nil, &Error{Op: op, Path: h.path, Err: ErrNotFound}
	}
	return k, nil
}

func (h *memHandle) SetString(_ context.Context, name, value string) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	k, err := h.key("set")
	if err != nil {
		return err
	}
	k.values[name] = Value{Name: name, Kind: KindString, Strings: []string{value}}
	return nil
}

func (h *memHandle) SetStrings(_ context.Context, name string, values []string) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	k, err := h.key("set")
	if err != nil {
		return err
	}
	k.values[name] = Value{Name: name, Kind: KindStrings, Strings: slices.Clone(values)}
	return nil
}

func (h *memHandle) get(name string) (Value, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	k, err := h.key("get")
	if err != nil {
		return Value{}, err
	}
	v, ok := k.values[name]
	if !ok {
		return Value{}, &Error{Op: "get", Path: h.path, Name: name, Err: ErrNotFound}
	}
	return v, nil
}

func (h *memHandle) GetString(_ context.Context, name string) (string, error) {
	v, err := h.get(name)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (h *memHandle) GetStrings(_ context.Context, name string) ([]string, error) {
	v, err := h.get(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.Strings), nil
}

func (h *memHandle) DeleteValue(_ context.Context, name string) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	k, err := h.key("delete-value")
	if err != nil {
		return err
	}
	if _, ok := k.values[name]; !ok {
		return &Error{Op: "delete-value", Path: h.path, Name: name, Err: ErrNotFound}
	}
	delete(k.values, name)
	return nil
}

func (h *memHandle) Values(_ context.Context) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		h.m.mu.Lock()
		k, err := h.key("enum")
		var names []string
		if err == nil {
			for name := range k.values {
				names = append(names, name)
			}
		}
		h.m.mu.Unlock()
		if err != nil {
			yield(Value{}, err)
			return
		}
		sort.Strings(names)
		for _, name := range names {
			v, err := h.get(name)
			if err != nil {
				// Deleted since the names were read.
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (h *memHandle) SubKeyNames(_ context.Context) ([]string, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if _, err := h.key("enum"); err != nil {
		return nil, err
	}
	prefix := canonical(h.path) + `\`
	var names []string
	for c, k := range h.m.keys {
		rest, ok := strings.CutPrefix(c, prefix)
		if !ok || strings.Contains(rest, `\`) {
			continue
		}
		names = append(names, k.path[strings.LastIndex(k.path, `\`)+1:])
	}
	sort.Strings(names)
	return names, nil
}

func (h *memHandle) Close() error { return nil }
