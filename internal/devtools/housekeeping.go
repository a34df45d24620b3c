package devtools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/bumper"
	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/makefile"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/style"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// CacheDirs are removed by clean in addition to every __pycache__.
var CacheDirs = []string{".mypy_cache", ".pytest_cache", ".ruff_cache"}

// StandardFiles are the files and directories cruft expects. A trailing
// slash marks a directory.
var StandardFiles = []string{
	".git/",
	".gitignore",
	".pre-commit-config.yaml",
	"Makefile",
	"README.md",
	"poetry.lock",
	"pyproject.toml",
	"ruff.toml",
	"src/",
	"setup.cfg",
	"tests/",
}

// now is replaced in tests.
var now = time.Now

var cleanCommand = command.Command{
	Name:  "clean",
	Short: "Remove bytecode and tool caches",
	Flags: func(fs *pflag.FlagSet) {
		fs.BoolP("dry-run", "n", false, "list what would be removed")
	},
	Handler: runClean,
}

var cruftCommand = command.Command{
	Name:    "cruft",
	Short:   "Check that the standard project files are present",
	Handler: runCruft,
}

var helpMakeCommand = command.Command{
	Name:    "help-make",
	Short:   "List the documented targets of the Makefile",
	Handler: runHelpMake,
}

var bumpVersionCommand = command.Command{
	Name:  "bump-version",
	Use:   "[rule]",
	Short: "Bump the version in pyproject.toml, commit and tag",
	Long: `Rule is one of patch, minor, major or daily (YYYY.MM.DD.N), handled
by adt itself, or any other rule accepted by "poetry version". The working
tree must be clean.`,
	Handler: runBumpVersion,
}

func runClean(_ context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	dryRun, _ := inv.Flags.GetBool("dry-run")
	dir, err := filepath.Abs(displayDir(inv.Dir))
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	root := afero.NewBasePathFs(filesystem(inv), dir)

	heading(inv, "Removing Python bytecode cache directories...")
	matches, err := doublestar.Glob(afero.NewIOFS(root), "**/__pycache__")
	if err != nil {
		return nil, fmt.Errorf("scanning for __pycache__: %w", err)
	}
	sort.Strings(matches)
	removed := 0
	for _, m := range matches {
		if ok, _ := afero.DirExists(root, m); !ok {
			continue
		}
		if err := remove(inv, root, m, dryRun); err != nil {
			return nil, err
		}
		removed++
	}

	heading(inv, "Removing other caches...")
	for _, name := range CacheDirs {
		if ok, _ := afero.Exists(root, name); !ok {
			continue
		}
		if err := remove(inv, root, name, dryRun); err != nil {
			return nil, err
		}
		removed++
	}
	if removed == 0 {
		fmt.Fprintln(stdout(inv), style.Dim("Nothing to remove"))
	}
	return nil, nil
}

func remove(inv *command.Invocation, root afero.Fs, path string, dryRun bool) error {
	if dryRun {
		fmt.Fprintln(stdout(inv), style.Dim("Would remove "+path))
		return nil
	}
	fmt.Fprintln(stdout(inv), style.Dim("Removing "+path))
	if err := root.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func runCruft(_ context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	fsys := filesystem(inv)
	heading(inv, "Checking standard files...")

	missing := 0
	for _, name := range StandardFiles {
		path := filepath.Join(inv.Dir, strings.TrimSuffix(name, "/"))
		var ok bool
		if strings.HasSuffix(name, "/") {
			ok, _ = afero.DirExists(fsys, path)
		} else {
			ok, _ = afero.Exists(fsys, path)
		}
		style.Status(stdout(inv), ok, "%s", name)
		if !ok {
			missing++
		}
	}

	tox, _ := afero.Exists(fsys, filepath.Join(inv.Dir, "tox.ini"))
	nox, _ := afero.Exists(fsys, filepath.Join(inv.Dir, "noxfile.py"))
	style.Status(stdout(inv), tox || nox, "tox.ini or noxfile.py")
	if !tox && !nox {
		missing++
	}

	if missing > 0 {
		return nil, apperr.ToolFailure(apperr.ExitFailure, "%d standard files missing", missing)
	}
	return nil, nil
}

func runHelpMake(_ context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	path := filepath.Join(inv.Dir, "Makefile")
	data, err := afero.ReadFile(filesystem(inv), path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Usagef("no Makefile in %s", displayDir(inv.Dir))
	}
	if err != nil {
		return nil, fmt.Errorf("reading Makefile: %w", err)
	}
	makefile.WriteHelp(stdout(inv), makefile.Parse(string(data)))
	return nil, nil
}

func runBumpVersion(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	if len(inv.Args) > 1 {
		return nil, apperr.Usagef("bump-version takes at most one rule, got %d arguments", len(inv.Args))
	}
	rule := bumper.RulePatch
	if len(inv.Args) == 1 {
		rule = inv.Args[0]
	}
	log := ctxlog.FromContext(ctx)
	agg := &runner.Aggregate{}

	res, err := inv.Runner.Run(ctx, runner.Invocation{Tool: "git", Args: []string{"diff", "--quiet"}, Dir: inv.Dir})
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, apperr.ToolFailure(apperr.ExitFailure, "Your repo is dirty. Please commit or stash changes first.")
	}

	var version string
	if bumper.Builtin(rule) {
		oldVersion, newVersion, err := bumper.Bump(filesystem(inv), inv.Dir, rule, now())
		if err != nil {
			return nil, apperr.Config(err, "bumping version")
		}
		log.Info("bumped version", "from", oldVersion, "to", newVersion, "rule", rule)
		version = newVersion
	} else {
		if current, err := bumper.Current(filesystem(inv), inv.Dir); err == nil {
			log.Info("delegating version bump to poetry", "from", current, "rule", rule)
		}
		steps := []runner.Invocation{
			{Tool: "poetry", Args: []string{"version", rule}, Dir: inv.Dir},
			{Tool: "poetry", Args: []string{"version", "--short"}, Dir: inv.Dir, Capture: true},
		}
		poetry, err := runner.RunAll(ctx, inv.Runner, steps, runner.StopOnFailure)
		agg.Merge(poetry)
		if err != nil || !poetry.Success() {
			agg.Failed = poetry.Failed
			return agg, err
		}
		version = strings.TrimSpace(poetry.Results[len(poetry.Results)-1].Stdout)
		if version == "" {
			return agg, apperr.ToolFailure(apperr.ExitFailure, "poetry reported an empty version")
		}
	}

	fmt.Fprintf(stdout(inv), "Version: %s\n", style.Bold(version))
	git, err := runner.RunAll(ctx, inv.Runner, []runner.Invocation{
		{Tool: "git", Args: []string{"add", manifest.ProjectFile}, Dir: inv.Dir},
		{Tool: "git", Args: []string{"commit", "-m", fmt.Sprintf("Bump version (%s)", version)}, Dir: inv.Dir},
		{Tool: "git", Args: []string{"tag", version}, Dir: inv.Dir},
	}, runner.StopOnFailure)
	agg.Merge(git)
	if git != nil {
		agg.Failed = git.Failed
	}
	return agg, err
}

func displayDir(dir string) string {
	if dir == "" || dir == "." {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return dir
}
