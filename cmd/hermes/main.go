package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/hermes/internal/command"
	"github.com/mattjoyce/hermes/internal/config"
	"github.com/mattjoyce/hermes/internal/dispatch"
	"github.com/mattjoyce/hermes/internal/doctor"
	"github.com/mattjoyce/hermes/internal/inspect"
	"github.com/mattjoyce/hermes/internal/log"
	"github.com/mattjoyce/hermes/internal/registration"
	"github.com/mattjoyce/hermes/internal/store"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failure already reported")

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	c := &cli{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		executable: os.Executable,
	}
	return c.run(context.Background(), args)
}

// cli holds one invocation's flags and the components built from them.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	executable func() (string, error)
	runner     dispatch.Runner // nil runs commands as child processes

	configPath string
	verbose    bool
	debug      bool

	env *environment
}

// environment is everything an operation needs, built once per invocation.
type environment struct {
	cfg      *config.Config
	exePath  string
	logger   *slog.Logger
	store    store.Store
	manager  *registration.Manager
	executor *command.Executor
	logFile  io.Closer
}

func (e *environment) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("failed to close store", "error", err)
		}
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

func (c *cli) run(ctx context.Context, args []string) int {
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	err := root.ExecuteContext(ctx)
	if c.env != nil {
		if err != nil {
			c.env.logger.Error("operation failed", "error", err, "exit_code", command.ExitCode(err))
		}
		c.env.close()
	}
	if err == nil {
		return 0
	}

	var de *dispatch.DispatchError
	switch {
	case errors.Is(err, errReported):
	case errors.As(err, &de) && de.Kind == dispatch.NonZeroExit:
		// The child reported its own failure.
	default:
		fmt.Fprintf(c.stderr, "hermes: %v\n", err)
	}
	return command.ExitCode(err)
}

// exitStatusHelp describes how open reports its outcome. A child that exits
// 125 or 127 looks the same as hermes' own failures.
const exitStatusHelp = `Exit status is the command's own status. hermes exits 125 when the URL
cannot be parsed or has no registered command, 127 when the command cannot
be started and 1 on any other failure. A command that itself exits 125 or
127 cannot be told apart from those failures.`

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hermes [url]",
		Short: "Custom URL protocol handler",
		Long: `hermes registers itself as the handler for custom URL schemes and runs the
command registered for each URL's hostname, passing the rest of the URL
in place of %1.

` + exitStatusHelp,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return c.execute(cmd.Context(), command.Open{URL: args[0]})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default: hermes.yaml beside the executable or in the user config dir)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")
	pf.BoolVar(&c.debug, "debug", false, "log at trace level")

	root.AddCommand(
		c.openCmd(),
		c.registerCmd(),
		c.registerHostCmd(),
		c.unregisterCmd(),
		c.unregisterHostCmd(),
		c.listCmd(),
		c.doctorCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <url>",
		Short: "Run the command registered for url's scheme and host",
		Long: `Run the command registered for url's scheme and host and wait for it.

` + exitStatusHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd.Context(), command.Open{URL: args[0]})
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var debugging bool
	cmd := &cobra.Command{
		Use:   "register <protocol>",
		Short: "Register this executable as the handler for protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd.Context(), command.Register{Protocol: args[0], Debugging: debugging})
		},
	}
	cmd.Flags().BoolVar(&debugging, "register-with-debugging", false, "launch with the configured debug argument")
	return cmd
}

func (c *cli) registerHostCmd() *cobra.Command {
	var debugging bool
	cmd := &cobra.Command{
		Use:   "register-host <protocol> <hostname> [--] <commandline...>",
		Short: "Map protocol://hostname to a command line",
		Long: `Map protocol://hostname to a command line. Every %1 in the arguments is
replaced with the URL's path, query and fragment when it is opened. Put the
command line after -- when it contains flags.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd.Context(), command.RegisterHost{
				Protocol:    args[0],
				Hostname:    args[1],
				CommandLine: args[2:],
				Debugging:   debugging,
			})
		},
	}
	cmd.Flags().BoolVar(&debugging, "register-with-debugging", false, "launch with the configured debug argument")
	return cmd
}

func (c *cli) unregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <protocol>",
		Short: "Remove protocol and all of its hosts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd.Context(), command.Unregister{Protocol: args[0]})
		},
	}
}

func (c *cli) unregisterHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister-host <protocol> <hostname>",
		Short: "Remove one host; the protocol goes with its last host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd.Context(), command.UnregisterHost{Protocol: args[0], Hostname: args[1]})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered protocols and hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			protocols, err := c.env.manager.Protocols(cmd.Context())
			if err != nil {
				return fmt.Errorf("list registrations: %w", err)
			}
			ns := c.env.cfg.Namespace
			if jsonOut {
				out, err := inspect.BuildJSONReport(ns, protocols)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), inspect.BuildReport(ns, protocols))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func (c *cli) doctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check registrations for problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := doctor.New(c.env.manager, c.env.exePath, c.env.cfg.DebugArgument)
			result, err := d.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				out, err := doctor.FormatJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), doctor.FormatHuman(result))
			}
			if !result.Valid {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func (c *cli) execute(ctx context.Context, op command.Operation) error {
	return c.env.executor.Execute(ctx, op)
}

// setup loads configuration, starts logging and opens the store. version
// and help need none of it.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	exe, err := c.executable()
	if err != nil {
		return fmt.Errorf("resolve own executable: %w", err)
	}
	cfg, err := config.LoadOrDefault(c.configPath, exe)
	if err != nil {
		return err
	}

	env := &environment{cfg: cfg, exePath: exe}
	logFile, err := log.OpenRotating(cfg.LogFilePath(exe), cfg.Log.MaxSize)
	var w io.Writer = c.stderr
	if err != nil {
		fmt.Fprintf(c.stderr, "hermes: logging to stderr: %v\n", err)
	} else {
		env.logFile = logFile
		w = logFile
		if cfg.Log.Stderr {
			w = io.MultiWriter(logFile, c.stderr)
		}
	}
	log.Setup(log.Options{Level: c.logLevel(cfg), Writer: w})

	env.logger = log.WithInvocation(uuid.NewString())
	c.env = env
	env.logger.Log(cmd.Context(), log.LevelTrace, "invocation",
		"command", cmd.Name(), "args", strings.Join(os.Args, " "), "config", cfg.SourceFile)

	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	st, err := store.Open(cmd.Context(), cfg.Store.Backend, storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	env.store = st

	env.manager = registration.NewManager(st, cfg.Namespace,
		registration.WithExecutable(c.executable),
		registration.WithLogger(env.logger.With("component", "registration")))
	disp := dispatch.New(env.manager, c.runner).WithLogger(env.logger.With("component", "dispatch"))
	env.executor = command.NewExecutor(env.manager, disp, cfg.DebugArgument).
		WithLogger(env.logger.With("component", "command"))
	return nil
}

func (c *cli) logLevel(cfg *config.Config) string {
	switch {
	case c.debug:
		return "trace"
	case c.verbose:
		return "debug"
	default:
		return cfg.Log.Level
	}
}
