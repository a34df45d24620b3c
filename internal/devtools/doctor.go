package devtools

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/style"
	"github.com/spf13/afero"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// DoctorTools lists every executable some command may launch.
var DoctorTools = []string{
	"ruff", "flake8", "mypy", "pyright", "vulture",
	"pytest", "ty", "black", "isort",
	"pip-audit", "bandit", "reuse",
	"poetry", "git",
}

var doctorCommand = command.Command{
	Name:    "doctor",
	Short:   "Report which tools and configuration files adt can find",
	Handler: runDoctor,
}

func runDoctor(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	w := stdout(inv)
	cfg := settings(inv)

	fmt.Fprintln(w, style.Header("Tools:"))
	for _, name := range DoctorTools {
		tc := cfg.Tool(name)
		exe := name
		if tc.Command != "" {
			exe = tc.Command
		}
		if tc.Skip {
			fmt.Fprintf(w, "  %s %s %s\n", style.Dim("[SKIP]"), name, style.Dim("(disabled in config)"))
			continue
		}
		path, err := lookPath(exe)
		if err != nil {
			style.Status(w, false, "%s not found", exe)
			continue
		}
		style.Status(w, true, "%s found at %s", exe, path)
	}

	fmt.Fprintln(w, style.Header("Configuration:"))
	fsys := filesystem(inv)
	files := []struct{ name, path string }{
		{config.LayerGlobal, config.GlobalFile()},
		{config.LayerProject, config.ProjectFile(inv.Dir)},
	}
	for _, f := range files {
		ok, _ := afero.Exists(fsys, f.path)
		status := "not present"
		if ok {
			status = "loaded"
		}
		style.Status(w, ok, "%s config %s (%s)", f.name, f.path, status)
	}

	fmt.Fprintln(w, style.Header("Seed:"))
	refs, err := profileRefs(inv)
	if err != nil {
		return nil, err
	}
	p, err := loader(inv).Load(ctx, refs...)
	if err != nil {
		style.Status(w, false, "default profile: %v", err)
		return nil, nil
	}
	style.Status(w, true, "default profile %s (%d files)", p.Name, len(p.Files))
	return nil, nil
}
