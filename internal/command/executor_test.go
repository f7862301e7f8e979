package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hermes/internal/dispatch"
	"github.com/mattjoyce/hermes/internal/dispatch/mocks"
	"github.com/mattjoyce/hermes/internal/log"
	"github.com/mattjoyce/hermes/internal/registration"
	"github.com/mattjoyce/hermes/internal/store"
)

func TestMain(m *testing.M) {
	log.Setup(log.Options{Level: "ERROR"})
	os.Exit(m.Run())
}

type fixture struct {
	mem    *store.Memory
	runner *mocks.MockRunner
	exec   *Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	mgr := registration.NewManager(mem, `bitSpatter\Hermes`,
		registration.WithExecutable(func() (string, error) { return "/opt/hermes/hermes", nil }))
	runner := mocks.NewMockRunner(gomock.NewController(t))
	return &fixture{
		mem:    mem,
		runner: runner,
		exec:   NewExecutor(mgr, dispatch.New(mgr, runner), "--debug"),
	}
}

func (f *fixture) openCommand(t *testing.T, scheme string) string {
	t.Helper()
	ctx := context.Background()
	k, err := f.mem.OpenKey(ctx, store.Join("Software", "Classes", scheme, "shell", "open", "command"))
	require.NoError(t, err)
	defer k.Close()
	s, err := k.GetString(ctx, "")
	require.NoError(t, err)
	return s
}

func TestExecuteRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.exec.Execute(ctx, Register{Protocol: "app"}))
	assert.Equal(t, `"/opt/hermes/hermes" "%1"`, f.openCommand(t, "app"))

	require.NoError(t, f.exec.Execute(ctx, Register{Protocol: "app", Debugging: true}))
	assert.Equal(t, `"/opt/hermes/hermes" --debug "%1"`, f.openCommand(t, "app"))
}

func TestExecuteRegisterHostThenOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.exec.Execute(ctx, RegisterHost{
		Protocol:    "app",
		Hostname:    "build",
		CommandLine: []string{`C:\tool.exe`, "--open", "%1"},
	}))
	f.runner.EXPECT().
		Run(gomock.Any(), []string{`C:\tool.exe`, "--open", "/assets/Foo?rev=2"}).
		Return(0, nil)
	require.NoError(t, f.exec.Execute(ctx, Open{URL: "app://build/assets/Foo?rev=2"}))
}

func TestExecuteOpenNonZeroExit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.EXPECT().Run(gomock.Any(), []string{"x", "/p"}).Return(4, nil)

	require.NoError(t, f.exec.Execute(ctx, RegisterHost{Protocol: "app", Hostname: "h", CommandLine: []string{"x", "%1"}}))
	err := f.exec.Execute(ctx, Open{URL: "app://h/p"})
	require.Error(t, err)

	var de *dispatch.DispatchError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, dispatch.NonZeroExit, de.Kind)
	assert.Equal(t, []string{"x", "/p"}, de.Command)
	assert.Equal(t, "h", de.Host)
	assert.Contains(t, err.Error(), "app://h/p")
	assert.Equal(t, 4, ExitCode(err))
}

func TestExecuteUnregisterHostCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.exec.Execute(ctx, RegisterHost{Protocol: "p", Hostname: "h", CommandLine: []string{"x"}}))
	require.NoError(t, f.exec.Execute(ctx, UnregisterHost{Protocol: "p", Hostname: "h"}))
	assert.False(t, f.mem.Exists(`Software\Classes\p`))
	assert.False(t, f.mem.Exists(`Software\bitSpatter\Hermes\p`))
}

func TestExecuteUnregisterWarningsDoNotFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.exec.Execute(ctx, Register{Protocol: "p"}))
	f.mem.FailOn("delete-tree", `Software\Classes\p`, os.ErrPermission)

	assert.NoError(t, f.exec.Execute(ctx, Unregister{Protocol: "p"}))
	assert.NoError(t, f.exec.Execute(ctx, Unregister{Protocol: "never-registered"}))
	assert.NoError(t, f.exec.Execute(ctx, UnregisterHost{Protocol: "never-registered", Hostname: "x"}))
}

func TestExecuteOpenUnknownProtocol(t *testing.T) {
	f := newFixture(t)
	err := f.exec.Execute(context.Background(), Open{URL: "unknown://host/x"})

	var le *dispatch.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, dispatch.NoSuchProtocol, le.Kind)
	assert.Equal(t, ExitNotHandled, ExitCode(err))
}

func TestExecuteRegisterInvalidScheme(t *testing.T) {
	f := newFixture(t)
	err := f.exec.Execute(context.Background(), Register{Protocol: "1nvalid"})
	assert.True(t, errors.Is(err, registration.ErrInvalidScheme))
	assert.Equal(t, ExitFailure, ExitCode(err))
}

type bogus struct{ Operation }

func TestExecuteUnknownOperation(t *testing.T) {
	f := newFixture(t)
	err := f.exec.Execute(context.Background(), bogus{})
	assert.ErrorContains(t, err, "unknown operation")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"non-zero exit", &dispatch.DispatchError{Kind: dispatch.NonZeroExit, ExitCode: 3}, 3},
		{"wrapped non-zero exit", fmt.Errorf("open: %w", &dispatch.DispatchError{Kind: dispatch.NonZeroExit, ExitCode: 42}), 42},
		{"unknown status", &dispatch.DispatchError{Kind: dispatch.NonZeroExit, ExitCode: -1}, ExitFailure},
		{"signal", &dispatch.DispatchError{Kind: dispatch.NonZeroExit, ExitCode: 137}, 137},
		{"spawn failed", &dispatch.DispatchError{Kind: dispatch.SpawnFailed, Err: exec.ErrNotFound}, ExitSpawn},
		{"empty command", &dispatch.DispatchError{Kind: dispatch.EmptyCommand}, ExitNotHandled},
		{"parse", &dispatch.ParseError{URL: "x", Err: errors.New("bad")}, ExitNotHandled},
		{"lookup", &dispatch.LookupError{Kind: dispatch.NoSuchHost}, ExitNotHandled},
		{"store", &store.Error{Op: "set", Err: os.ErrPermission}, ExitFailure},
		{"registration", &registration.Error{Op: "register", Err: errors.New("x")}, ExitFailure},
		{"other", errors.New("config"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
