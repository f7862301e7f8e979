package registration

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mattjoyce/hermes/internal/store"
)

// Protocol is a snapshot of one protocol's registration.
type Protocol struct {
	Scheme      string `json:"scheme"`
	Registered  bool   `json:"registered"` // protocol record present
	Description string `json:"description,omitempty"`
	OpenCommand string `json:"open_command,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Hosts       []Host `json:"hosts"`
}

// Host is one host entry.
type Host struct {
	Name    string   `json:"name"`
	Command []string `json:"command"`
}

// Protocols lists every protocol with a configuration subtree under the
// namespace, plus every class whose open command launches this executable,
// sorted by scheme.
func (m *Manager) Protocols(ctx context.Context) ([]Protocol, error) {
	schemes := make(map[string]struct{})

	names, err := m.subKeyNames(ctx, m.layout.NamespaceKey())
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		schemes[normalizeScheme(name)] = struct{}{}
	}

	launched, err := m.launchedSchemes(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range launched {
		schemes[name] = struct{}{}
	}

	out := make([]Protocol, 0, len(schemes))
	for _, name := range slices.Sorted(maps.Keys(schemes)) {
		p, err := m.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// launchedSchemes scans the class subtree for protocols whose open command
// starts with this executable, quoted.
func (m *Manager) launchedSchemes(ctx context.Context) ([]string, error) {
	exe, err := m.executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable: %w", err)
	}
	prefix := `"` + exe + `"`

	names, err := m.subKeyNames(ctx, m.layout.ClassesKey())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		if !ValidScheme(name) {
			continue
		}
		cmd, err := m.defaultValue(ctx, store.Join(m.layout.ProtocolKey(name), `shell\open\command`))
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, normalizeScheme(name))
		}
	}
	return out, nil
}

func (m *Manager) subKeyNames(ctx context.Context, path string) ([]string, error) {
	k, err := m.store.OpenKey(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer k.Close()
	return k.SubKeyNames(ctx)
}

// Describe reads protocol's record and host table. Missing pieces are left
// zero rather than reported as errors.
func (m *Manager) Describe(ctx context.Context, protocol string) (Protocol, error) {
	protocol = normalizeScheme(protocol)
	p := Protocol{Scheme: protocol, Hosts: []Host{}}

	classPath := m.layout.ProtocolKey(protocol)
	class, err := m.store.OpenKey(ctx, classPath)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return Protocol{}, err
	default:
		defer class.Close()
		p.Registered = true
		if p.Description, err = optionalString(ctx, class, ""); err != nil {
			return Protocol{}, err
		}
		if p.OpenCommand, err = m.defaultValue(ctx, store.Join(classPath, `shell\open\command`)); err != nil {
			return Protocol{}, err
		}
		if p.Icon, err = m.defaultValue(ctx, store.Join(classPath, "DefaultIcon")); err != nil {
			return Protocol{}, err
		}
	}

	hosts, err := m.store.OpenKey(ctx, m.layout.HostsKey(protocol))
	if errors.Is(err, store.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return Protocol{}, err
	}
	defer hosts.Close()
	for v, err := range hosts.Values(ctx) {
		if err != nil {
			return Protocol{}, err
		}
		p.Hosts = append(p.Hosts, Host{Name: v.Name, Command: v.Strings})
	}
	return p, nil
}

func (m *Manager) defaultValue(ctx context.Context, path string) (string, error) {
	k, err := m.store.OpenKey(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer k.Close()
	return optionalString(ctx, k, "")
}

func optionalString(ctx context.Context, k store.Key, name string) (string, error) {
	s, err := k.GetString(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return s, err
}
