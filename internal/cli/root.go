package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/branding"
	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/devtools"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/updater"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// buildInfo is injected via ldflags in main.
type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// globalFlags are parsed before the subcommand so that short flags such as
// -v can mean something else after it.
type globalFlags struct {
	version bool
	debug   bool
	verbose bool
	help    bool
	dir     string
	set     []string
}

// app is the state shared by every command of one process run.
type app struct {
	build  buildInfo
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	fs     afero.Fs

	registry *command.Registry
	// runner overrides the exec runner (tests).
	runner  runner.Runner
	checker *updater.Checker
}

// Execute parses args (without the program name) and runs the selected
// command. The returned error maps to the exit code via apperr.ExitCode.
func Execute(ctx context.Context, version, commit, date string, args []string) error {
	a := &app{
		build:    buildInfo{Version: version, Commit: commit, Date: date},
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		stdin:    os.Stdin,
		fs:       afero.NewOsFs(),
		registry: devtools.NewRegistry(),
		checker:  updater.New(),
	}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	g, rest, err := parseGlobals(args)
	if err != nil {
		return err
	}
	a.flags = g
	if g.version {
		fmt.Fprintf(a.stdout, "%s %s\n", branding.CLIName(), a.build.Version)
		return nil
	}
	if g.help {
		rest = append(rest, "--help")
	}

	logger := ctxlog.New(ctxlog.Level(g.debug, g.verbose), a.stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	root := a.newRootCmd()
	root.SetArgs(rest)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetIn(a.stdin)
	return root.ExecuteContext(ctx)
}

func parseGlobals(args []string) (globalFlags, []string, error) {
	var g globalFlags
	fs := pflag.NewFlagSet(branding.CLIName(), pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.BoolVarP(&g.version, "version", "V", false, "print the version and exit")
	fs.BoolVarP(&g.debug, "debug", "d", false, "debug logging")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "verbose logging")
	fs.BoolVarP(&g.help, "help", "h", false, "show help")
	fs.StringVarP(&g.dir, "directory", "C", "", "run as if started in this directory")
	fs.StringArrayVar(&g.set, "set", nil, "override a config key (key=value, repeatable)")
	if err := fs.Parse(args); err != nil {
		return g, nil, apperr.Usagef("%v", err)
	}
	return g, fs.Args(), nil
}

const globalHelp = `
Global flags (before the command):
  -V, --version          print the version and exit
  -d, --debug            debug logging
  -v, --verbose          verbose logging
  -C, --directory DIR    run as if started in DIR
      --set KEY=VALUE    override a config key, e.g. --set audit.source=app`

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   branding.CLIName() + " [global flags] <command> [args]",
		Short: branding.Description(),
		Long: branding.DisplayName() + ` runs a curated set of Python code-quality tools (ruff, mypy, pytest,
black, bandit and friends) with consistent targets and exit codes, and seeds
project configuration files from layered profiles.` + "\n" + globalHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.dispatch(cmd.Context(), args[0], args[1:], nil)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Usagef("%v", err)
	})

	for _, c := range a.registry.Commands() {
		root.AddCommand(a.registryCmd(c))
	}
	root.AddCommand(a.versionCmd(), a.configCmd())
	return root
}

// registryCmd wraps one registered command. Flags are declared on the cobra
// command itself so help output lists them.
func (a *app) registryCmd(c command.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:     strings.TrimSpace(c.Name + " " + c.Use),
		Aliases: c.Aliases,
		Short:   c.Short,
		Long:    c.Long,
		Hidden:  c.Deprecated != "",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd.Context(), c.Name, args, cmd.Flags())
		},
	}
	if c.Flags != nil {
		c.Flags(cmd.Flags())
	}
	return cmd
}

func (a *app) projectDir() string {
	if a.flags.dir != "" {
		return a.flags.dir
	}
	return "."
}

// overrides turns --set key=value pairs into config overrides.
func (a *app) overrides() (map[string]any, error) {
	out := make(map[string]any, len(a.flags.set))
	for _, kv := range a.flags.set {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, apperr.Usagef("invalid --set %q: expected key=value", kv)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func (a *app) loadConfig(ctx context.Context) (*config.Config, error) {
	overrides, err := a.overrides()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(ctx, config.Options{
		ProjectDir: a.projectDir(),
		Overrides:  overrides,
		Fs:         a.fs,
	})
	if err != nil {
		return nil, err
	}
	layers := make([]string, 0, len(cfg.Layers))
	for _, l := range cfg.Layers {
		layers = append(layers, l.Path)
	}
	ctxlog.FromContext(ctx).Debug("resolved configuration", "layers", layers, "targets", cfg.Targets)
	return cfg, nil
}

func (a *app) dispatch(ctx context.Context, name string, args []string, flags *pflag.FlagSet) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	r := a.runner
	if r == nil {
		r = &runner.ExecRunner{Stdout: a.stdout, Stderr: a.stderr, Echo: cfg.Settings.Echo}
	}
	env := &command.Env{
		Config:  cfg,
		Runner:  r,
		Fs:      a.fs,
		Dir:     a.projectDir(),
		Stdout:  a.stdout,
		Stderr:  a.stderr,
		Stdin:   a.stdin,
		Version: a.build.Version,
	}
	_, err = a.registry.Dispatch(ctx, env, name, args, flags)
	return err
}
