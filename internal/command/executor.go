package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/mattjoyce/hermes/internal/dispatch"
	"github.com/mattjoyce/hermes/internal/log"
	"github.com/mattjoyce/hermes/internal/registration"
)

// Exit codes for failures that are not a child's own status.
const (
	ExitFailure    = 1
	ExitNotHandled = 125 // URL could not be parsed or resolved to a command
	ExitSpawn      = 127 // resolved command could not be started
)

// Executor runs operations.
type Executor struct {
	manager       *registration.Manager
	dispatcher    *dispatch.Dispatcher
	debugArgument string
	logger        *slog.Logger
}

// NewExecutor creates an Executor. debugArgument is the extra argument
// written into open commands for operations with Debugging set.
func NewExecutor(m *registration.Manager, d *dispatch.Dispatcher, debugArgument string) *Executor {
	return &Executor{
		manager:       m,
		dispatcher:    d,
		debugArgument: debugArgument,
		logger:        log.WithComponent("command"),
	}
}

// WithLogger sets the logger used for operation records.
func (e *Executor) WithLogger(l *slog.Logger) *Executor {
	e.logger = l
	return e
}

// Execute runs op. Unregister warnings are logged and do not fail the
// operation. A dispatched command exiting non-zero is reported as a
// *dispatch.DispatchError of kind NonZeroExit.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	switch op := op.(type) {
	case Open:
		e.logger.Info("open", "url", op.URL)
		res, err := e.dispatcher.Open(ctx, op.URL)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return &dispatch.DispatchError{
				Kind:     dispatch.NonZeroExit,
				Scheme:   res.Target.Scheme,
				Host:     res.Target.Host,
				URL:      op.URL,
				Command:  res.Command,
				ExitCode: res.ExitCode,
			}
		}
		return nil

	case Register:
		e.logger.Info("register", "protocol", op.Protocol, "debugging", op.Debugging)
		return e.manager.RegisterProtocol(ctx, op.Protocol, e.extraArg(op.Debugging))

	case RegisterHost:
		e.logger.Info("register host", "protocol", op.Protocol, "host", op.Hostname, "command", op.CommandLine, "debugging", op.Debugging)
		return e.manager.RegisterHost(ctx, op.Protocol, op.Hostname, op.CommandLine, e.extraArg(op.Debugging))

	case Unregister:
		e.logger.Info("unregister", "protocol", op.Protocol)
		e.warn(e.manager.UnregisterProtocol(ctx, op.Protocol))
		return nil

	case UnregisterHost:
		e.logger.Info("unregister host", "protocol", op.Protocol, "host", op.Hostname)
		e.warn(e.manager.UnregisterHost(ctx, op.Protocol, op.Hostname))
		return nil

	default:
		return fmt.Errorf("unknown operation %T", op)
	}
}

func (e *Executor) extraArg(debugging bool) string {
	if debugging {
		return e.debugArgument
	}
	return ""
}

func (e *Executor) warn(warnings error) {
	for _, w := range multierr.Errors(warnings) {
		e.logger.Warn("unregister incomplete", "error", w)
	}
}

// ExitCode maps an Execute result to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var de *dispatch.DispatchError
	if errors.As(err, &de) {
		switch de.Kind {
		case dispatch.NonZeroExit:
			if de.ExitCode > 0 && de.ExitCode <= 255 {
				return de.ExitCode
			}
			return ExitFailure
		case dispatch.SpawnFailed:
			return ExitSpawn
		case dispatch.EmptyCommand:
			return ExitNotHandled
		}
	}

	var pe *dispatch.ParseError
	var le *dispatch.LookupError
	if errors.As(err, &pe) || errors.As(err, &le) {
		return ExitNotHandled
	}
	return ExitFailure
}
