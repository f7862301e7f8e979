// Package registration owns the protocol and host data model.
//
// A protocol has an installation record (the OS protocol class pointing at
// this executable) and a table of host entries, each a command template.
// The manager keeps two invariants across calls:
//   - a protocol record exists whenever any of its host entries exists
//   - removing the last host entry removes the whole protocol
//
// Registering is idempotent. Unregistering something absent succeeds.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/multierr"

	"github.com/mattjoyce/hermes/internal/log"
	"github.com/mattjoyce/hermes/internal/store"
)

var (
	ErrInvalidScheme  = errors.New("invalid scheme")
	ErrNoSuchProtocol = errors.New("no hostnames registered for protocol")
	ErrNoSuchHost     = errors.New("hostname not registered")
)

// Error is a failed registration write.
type Error struct {
	Op       string
	Protocol string
	Host     string
	Err      error
}

func (e *Error) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("%s %s://%s: %v", e.Op, e.Protocol, e.Host, e.Err)
	}
	return fmt.Sprintf("%s %s://: %v", e.Op, e.Protocol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager reads and writes registrations through a store.
type Manager struct {
	store      store.Store
	layout     Layout
	executable func() (string, error)
	logger     *slog.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithExecutable overrides how the handler's own path is resolved.
func WithExecutable(fn func() (string, error)) Option {
	return func(m *Manager) { m.executable = fn }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over st. namespace is the configuration
// subtree under Software\.
func NewManager(st store.Store, namespace string, opts ...Option) *Manager {
	m := &Manager{
		store:      st,
		layout:     Layout{Namespace: namespace},
		executable: os.Executable,
		logger:     log.WithComponent("registration"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Layout returns the key layout the manager writes.
func (m *Manager) Layout() Layout { return m.layout }

// RegisterProtocol points protocol at this executable. extraArg, if set, is
// inserted before the placeholder in the open command.
func (m *Manager) RegisterProtocol(ctx context.Context, protocol, extraArg string) error {
	if !ValidScheme(protocol) {
		return &Error{Op: "register", Protocol: protocol, Err: ErrInvalidScheme}
	}
	protocol = normalizeScheme(protocol)

	exe, err := m.executable()
	if err != nil {
		return &Error{Op: "register", Protocol: protocol, Err: fmt.Errorf("resolve own executable: %w", err)}
	}
	if err := m.writeProtocol(ctx, protocol, exe, extraArg); err != nil {
		return &Error{Op: "register", Protocol: protocol, Err: err}
	}
	m.logger.Debug("registered protocol", "protocol", protocol, "executable", exe, "extra_arg", extraArg)
	return nil
}

func (m *Manager) writeProtocol(ctx context.Context, protocol, exe, extraArg string) error {
	classPath := m.layout.ProtocolKey(protocol)
	class, err := m.store.CreateKey(ctx, classPath)
	if err != nil {
		return err
	}
	defer class.Close()
	if err := class.SetString(ctx, "", Description(protocol)); err != nil {
		return err
	}
	// Marks the class as a URL protocol handler.
	if err := class.SetString(ctx, "URL Protocol", ""); err != nil {
		return err
	}

	icon, err := m.store.CreateKey(ctx, store.Join(classPath, "DefaultIcon"))
	if err != nil {
		return err
	}
	defer icon.Close()
	if err := icon.SetString(ctx, "", IconReference(exe)); err != nil {
		return err
	}

	cmd, err := m.store.CreateKey(ctx, store.Join(classPath, `shell\open\command`))
	if err != nil {
		return err
	}
	defer cmd.Close()
	return cmd.SetString(ctx, "", OpenCommand(exe, extraArg))
}

// RegisterHost registers protocol (see RegisterProtocol) and then maps
// hostname to template.
func (m *Manager) RegisterHost(ctx context.Context, protocol, hostname string, template []string, extraArg string) error {
	if hostname == "" {
		return &Error{Op: "register-host", Protocol: protocol, Err: errors.New("hostname is empty")}
	}
	if len(template) == 0 {
		return &Error{Op: "register-host", Protocol: protocol, Host: hostname, Err: errors.New("command line is empty")}
	}
	if err := m.RegisterProtocol(ctx, protocol, extraArg); err != nil {
		return err
	}
	protocol = normalizeScheme(protocol)

	hosts, err := m.store.CreateKey(ctx, m.layout.HostsKey(protocol))
	if err != nil {
		return &Error{Op: "register-host", Protocol: protocol, Host: hostname, Err: err}
	}
	defer hosts.Close()
	if err := hosts.SetStrings(ctx, hostname, template); err != nil {
		return &Error{Op: "register-host", Protocol: protocol, Host: hostname, Err: err}
	}
	m.logger.Debug("registered host", "protocol", protocol, "host", hostname, "command", template)
	return nil
}

// UnregisterProtocol deletes the protocol record and its configuration
// subtree. Absent subtrees are ignored. Failures to delete a present subtree
// do not stop the other deletion; they are logged and returned combined as
// warnings. A nil result means both subtrees are gone.
func (m *Manager) UnregisterProtocol(ctx context.Context, protocol string) (warnings error) {
	if !ValidScheme(protocol) {
		m.logger.Debug("nothing to unregister for invalid scheme", "protocol", protocol)
		return nil
	}
	protocol = normalizeScheme(protocol)

	for _, path := range []string{m.layout.ProtocolKey(protocol), m.layout.ConfigKey(protocol)} {
		if err := m.store.DeleteKeyTree(ctx, path); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("could not delete registration subtree", "protocol", protocol, "path", path, "error", err)
			warnings = multierr.Append(warnings, err)
		}
	}
	m.logger.Debug("unregistered protocol", "protocol", protocol)
	return warnings
}

// UnregisterHost removes hostname from protocol's host table. When no hosts
// remain, or the table cannot be opened at all, the whole protocol is
// unregistered. Like UnregisterProtocol it only returns warnings.
func (m *Manager) UnregisterHost(ctx context.Context, protocol, hostname string) (warnings error) {
	if !ValidScheme(protocol) {
		m.logger.Debug("nothing to unregister for invalid scheme", "protocol", protocol)
		return nil
	}
	protocol = normalizeScheme(protocol)

	hosts, err := m.store.OpenKey(ctx, m.layout.HostsKey(protocol))
	if err != nil {
		m.logger.Debug("host table unavailable, removing protocol", "protocol", protocol, "error", err)
		return m.UnregisterProtocol(ctx, protocol)
	}
	defer hosts.Close()

	if err := hosts.DeleteValue(ctx, hostname); err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("could not delete host", "protocol", protocol, "host", hostname, "error", err)
		warnings = multierr.Append(warnings, err)
	}

	empty, err := store.IsEmpty(ctx, hosts)
	if err != nil {
		m.logger.Warn("could not enumerate remaining hosts", "protocol", protocol, "error", err)
		return multierr.Append(warnings, err)
	}
	if empty {
		m.logger.Debug("last host removed, removing protocol", "protocol", protocol, "host", hostname)
		return multierr.Append(warnings, m.UnregisterProtocol(ctx, protocol))
	}
	m.logger.Debug("unregistered host", "protocol", protocol, "host", hostname)
	return warnings
}

// HostCommand returns the command template registered for protocol/hostname.
// It fails with ErrNoSuchProtocol or ErrNoSuchHost when nothing is registered.
func (m *Manager) HostCommand(ctx context.Context, protocol, hostname string) ([]string, error) {
	protocol = normalizeScheme(protocol)
	hosts, err := m.store.OpenKey(ctx, m.layout.HostsKey(protocol))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNoSuchProtocol, err)
	}
	if err != nil {
		return nil, err
	}
	defer hosts.Close()

	tmpl, err := hosts.GetStrings(ctx, hostname)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNoSuchHost, err)
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}
