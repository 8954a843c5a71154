// Package cmd implements the tasks command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tasks-cli/app"
	"tasks-cli/config"
	"tasks-cli/logging"
	"tasks-cli/store"
)

// Exit codes returned by Execute.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitCorrupt    = 4
	ExitIO         = 5
)

var errUsage = errors.New("usage error")

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	debug      bool
	file       string
	backend    string
	configPath string
}

// env is the per-invocation state built before a command runs.
type env struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	flags  globalFlags
	cfg    *config.Config
	logger *log.Logger
	svc    *app.Service
	closer io.Closer
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string, in io.Reader, out, errOut io.Writer) int {
	e := &env{in: in, out: out, errOut: errOut}
	root := newRootCmd(e)
	root.SetArgs(normalizeArgs(args))
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if e.closer != nil {
		_ = e.closer.Close()
	}
	if err != nil {
		_, _ = fmt.Fprintln(errOut, "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "tasks",
		Short:         "Manage a personal task list",
		Long:          "tasks keeps a personal task list in a local file and lets you add, list, edit, complete and delete tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() {
				return nil
			}
			return e.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
			}
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.BoolVar(&e.flags.debug, "debug", false, "Print parsed arguments and enable debug logging")
	pf.StringVar(&e.flags.file, "file", "", "Path to the task data file")
	pf.StringVar(&e.flags.backend, "backend", "", "Storage backend: json or sqlite")
	pf.StringVar(&e.flags.configPath, "config", "", "Path to a TOML config file")

	root.AddCommand(
		newListCmd(e),
		newAddCmd(e),
		newCompleteCmd(e),
		newEditCmd(e),
		newDeleteCmd(e),
		newExportCmd(e),
		newServeCmd(e),
	)
	return root
}

// setup resolves configuration, logging and storage for cmd.
func (e *env) setup(cmd *cobra.Command) error {
	if e.flags.debug {
		printParsedArgs(e.errOut, cmd)
	}

	cfg, err := config.Load(e.flags.configPath)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("file") {
		cfg.DataFile = e.flags.file
	}
	if pf.Changed("backend") {
		cfg.Backend = e.flags.backend
	}
	if e.flags.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logging.New(e.errOut, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Prefix: "tasks"})

	backend, err := e.openBackend()
	if err != nil {
		return err
	}
	svc, err := app.NewService(backend, app.WithLogger(e.logger))
	if err != nil {
		return err
	}
	e.svc = svc
	return nil
}

func (e *env) openBackend() (store.Backend, error) {
	switch e.cfg.Backend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(e.cfg.DataFile, e.logger)
		if err != nil {
			return nil, err
		}
		e.closer = db
		return db, nil
	default:
		return store.NewJSONFile(e.cfg.DataFile, store.JSONFileOptions{
			Backups: e.cfg.Backups,
			Recover: e.cfg.RecoverCorrupt,
			Logger:  e.logger,
		}), nil
	}
}

func printParsedArgs(w io.Writer, cmd *cobra.Command) {
	var parts []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, f.Value.String()))
	})
	_, _ = fmt.Fprintf(w, "debug: command=%s %s\n", cmd.Name(), strings.Join(parts, " "))
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %s takes no arguments, got %q", errUsage, cmd.Name(), args)
	}
	return nil
}

// legacyFlags maps single-dash long options to their double-dash form.
var legacyFlags = map[string]string{
	"-id": "--id",
	"-dl": "--deadline",
}

// normalizeArgs rewrites single-dash long options so the flag parser
// does not read them as bundled shorthands.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(a, "=")
		if long, ok := legacyFlags[name]; ok {
			if hasValue {
				a = long + "=" + value
			} else {
				a = long
			}
		}
		out = append(out, a)
	}
	return out
}

// exitCode maps an error to the documented process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, app.ErrValidation), errors.Is(err, errUsage), errors.Is(err, config.ErrInvalid):
		return ExitValidation
	case errors.Is(err, app.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrCorruptData):
		return ExitCorrupt
	case errors.Is(err, store.ErrIO):
		return ExitIO
	default:
		return ExitFailure
	}
}
