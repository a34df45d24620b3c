package devtools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/spf13/afero"
)

var checkCommand = command.Command{
	Name:  "check",
	Use:   "[paths...]",
	Short: "Run checkers and linters on the given files or directories",
	Long: `Runs ruff, flake8, mypy, pyright and vulture one after the other.
Every tool runs even when an earlier one fails; the exit code is the first
failing tool's exit code.`,
	Handler: runCheck,
}

var testCommand = command.Command{
	Name:    "test",
	Use:     "[paths...]",
	Short:   "Run the test suite with pytest",
	Handler: runTargeted("Running tests...", runner.StopOnFailure, tool{name: "pytest", targets: true}),
}

var typecheckCommand = command.Command{
	Name:    "typecheck",
	Use:     "[paths...]",
	Short:   "Run the ty type checker",
	Handler: runTargeted("Running type checker...", runner.StopOnFailure, tool{name: "ty", args: []string{"check"}, targets: true}),
}

var formatCommand = command.Command{
	Name:  "format",
	Use:   "[paths...]",
	Short: "Format code with black and isort",
	Handler: runTargeted("Formatting code...", runner.ContinueOnFailure,
		tool{name: "black", targets: true},
		tool{name: "isort", targets: true},
	),
}

var auditCommand = command.Command{
	Name:    "audit",
	Short:   "Run security and license audits",
	Long:    "Runs pip-audit, bandit over the configured audit source and reuse lint.",
	Handler: runAudit,
}

var securityCheckCommand = command.Command{
	Name:       "security-check",
	Short:      "Run security and license audits (deprecated)",
	Deprecated: `use "audit" instead`,
	Handler: func(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
		return inv.Registry.Run(ctx, inv.Env, "audit", inv.Args, nil)
	},
}

var allCommand = command.Command{
	Name:    "all",
	Use:     "[paths...]",
	Short:   "Run check, then test",
	Long:    "Runs each phase in order and stops at the first phase that fails.",
	Handler: runAll,
}

func runCheck(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	targets, err := resolveTargets(inv)
	if err != nil {
		return nil, err
	}
	heading(inv, "Running checks...")

	ruff := tool{name: "ruff", args: []string{"check"}, targets: true}
	if ok, _ := afero.Exists(filesystem(inv), filepath.Join(inv.Dir, "etc", "ruff.toml")); ok {
		ruff.args = append(ruff.args, "-c", "etc/ruff.toml")
	}
	tools := []tool{
		ruff,
		{name: "flake8", targets: true},
		{name: "mypy", args: []string{"--show-error-codes"}, targets: true},
		{name: "pyright"},
		{name: "vulture", args: []string{"--min-confidence", "80"}, targets: true},
	}
	return runner.RunAll(ctx, inv.Runner, invocations(inv, tools, targets), runner.ContinueOnFailure)
}

// runTargeted returns a handler that resolves targets and runs tools.
func runTargeted(title string, policy runner.Policy, tools ...tool) command.Handler {
	return func(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
		targets, err := resolveTargets(inv)
		if err != nil {
			return nil, err
		}
		heading(inv, "%s", title)
		return runner.RunAll(ctx, inv.Runner, invocations(inv, tools, targets), policy)
	}
}

func runAudit(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	source := settings(inv).Audit.Source
	if source == "" {
		source = "src"
	}
	heading(inv, "Running audits...")
	tools := []tool{
		{name: "pip-audit"},
		{name: "bandit", args: []string{"-q", "-c", "pyproject.toml", "-r", source}},
		{name: "reuse", args: []string{"lint"}},
	}
	return runner.RunAll(ctx, inv.Runner, invocations(inv, tools, nil), runner.ContinueOnFailure)
}

func runAll(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	total := &runner.Aggregate{}
	for _, phase := range AllPhases {
		agg, err := inv.Registry.Run(ctx, inv.Env, phase, inv.Args, nil)
		total.Merge(agg)
		if err != nil {
			return total, fmt.Errorf("phase %q: %w", phase, err)
		}
		if !agg.Success() {
			total.Failed = fmt.Sprintf("phase %q", phase)
			return total, nil
		}
	}
	return total, nil
}
