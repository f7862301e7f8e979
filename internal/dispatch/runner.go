package dispatch

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// signalExitBase is added to the signal number of a child killed by a
// signal, matching the shell's $? convention.
const signalExitBase = 128

// Runner starts a command and waits for it. A non-nil error means the
// command could not be started or waited on; a command that ran reports its
// status through the exit code alone. A child killed by a signal reports
// 128 plus the signal number.
type Runner interface {
	Run(ctx context.Context, argv []string) (exitCode int, err error)
}

// ExecRunner runs commands as child processes sharing this process's
// standard streams.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner wired to os.Stdin, os.Stdout and os.Stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("no command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return signalExitBase + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, err
	}
	return 0, nil
}
