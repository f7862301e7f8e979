package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mattjoyce/hermes/internal/log"
	"github.com/mattjoyce/hermes/internal/registration"
)

//go:generate mockgen -destination=mocks/mock_dispatch.go -package=mocks github.com/mattjoyce/hermes/internal/dispatch Runner,Resolver

// Resolver looks up the command template registered for scheme and host.
// *registration.Manager implements it.
type Resolver interface {
	HostCommand(ctx context.Context, protocol, hostname string) ([]string, error)
}

// Dispatcher opens URLs by running their registered commands.
type Dispatcher struct {
	resolver Resolver
	runner   Runner
	logger   *slog.Logger
}

// New creates a Dispatcher. A nil runner runs commands with NewExecRunner.
func New(resolver Resolver, runner Runner) *Dispatcher {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Dispatcher{
		resolver: resolver,
		runner:   runner,
		logger:   log.WithComponent("dispatch"),
	}
}

// WithLogger returns a copy of d that logs to l.
func (d *Dispatcher) WithLogger(l *slog.Logger) *Dispatcher {
	c := *d
	c.logger = l
	return &c
}

// Resolve parses rawURL and returns the command it would run.
func (d *Dispatcher) Resolve(ctx context.Context, rawURL string) (Target, []string, error) {
	t, err := ParseTarget(rawURL)
	if err != nil {
		return Target{}, nil, err
	}

	tmpl, err := d.resolver.HostCommand(ctx, t.Scheme, t.Host)
	switch {
	case errors.Is(err, registration.ErrNoSuchProtocol):
		return t, nil, &LookupError{Kind: NoSuchProtocol, Scheme: t.Scheme, Host: t.Host, URL: rawURL, Err: err}
	case errors.Is(err, registration.ErrNoSuchHost):
		return t, nil, &LookupError{Kind: NoSuchHost, Scheme: t.Scheme, Host: t.Host, URL: rawURL, Err: err}
	case err != nil:
		return t, nil, err
	}
	if len(tmpl) == 0 {
		return t, nil, &DispatchError{Kind: EmptyCommand, Scheme: t.Scheme, Host: t.Host, URL: rawURL}
	}
	return t, Expand(tmpl, registration.Placeholder, t.Selector), nil
}

// Result describes a command that ran.
type Result struct {
	Target   Target
	Command  []string
	ExitCode int
}

// Open resolves rawURL, runs its command and waits for it to exit. The
// child's exit status is returned in the Result; a non-zero status is not an
// error here.
func (d *Dispatcher) Open(ctx context.Context, rawURL string) (Result, error) {
	t, argv, err := d.Resolve(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	logger := d.logger.With("scheme", t.Scheme, "host", t.Host)
	logger.Debug("dispatching url", "url", rawURL, "selector", t.Selector, "command", argv)

	code, err := d.runner.Run(ctx, argv)
	if err != nil {
		logger.Error("failed to spawn command", "command", argv, "error", err)
		return Result{}, &DispatchError{Kind: SpawnFailed, Scheme: t.Scheme, Host: t.Host, URL: rawURL, Command: argv, Err: err}
	}
	if code != 0 {
		logger.Warn("command exited with non-zero status", "exit_code", code)
	} else {
		logger.Log(ctx, log.LevelTrace, "command exited", "exit_code", code)
	}
	return Result{Target: t, Command: argv, ExitCode: code}, nil
}
