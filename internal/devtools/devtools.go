// Package devtools implements the adt subcommands: thin wrappers that run
// the configured Python quality tools in a fixed order, plus the seed,
// clean, cruft and version-bump helpers.
package devtools

import (
	"fmt"
	"io"

	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/style"
	"github.com/adt-dev/adt/internal/target"
	"github.com/spf13/afero"
)

// AllPhases are the commands "all" runs, in order.
var AllPhases = []string{"check", "test"}

// NewRegistry returns the registry of every adt subcommand.
func NewRegistry() *command.Registry {
	return command.New(
		checkCommand,
		testCommand,
		typecheckCommand,
		formatCommand,
		auditCommand,
		securityCheckCommand,
		cleanCommand,
		cruftCommand,
		helpMakeCommand,
		bumpVersionCommand,
		seedCommand,
		allCommand,
		doctorCommand,
	)
}

// tool describes one default tool invocation of a command.
type tool struct {
	name string
	args []string
	// targets appends the resolved target paths.
	targets bool
}

func stdout(inv *command.Invocation) io.Writer {
	if inv.Stdout == nil {
		return io.Discard
	}
	return inv.Stdout
}

func stderr(inv *command.Invocation) io.Writer {
	if inv.Stderr == nil {
		return io.Discard
	}
	return inv.Stderr
}

func filesystem(inv *command.Invocation) afero.Fs {
	if inv.Fs == nil {
		return afero.NewOsFs()
	}
	return inv.Fs
}

func settings(inv *command.Invocation) *config.Config {
	if inv.Config == nil {
		return &config.Config{Targets: []string{"src", "tests"}, Audit: config.AuditConfig{Source: "src"}}
	}
	return inv.Config
}

func heading(inv *command.Invocation, format string, args ...any) {
	fmt.Fprintln(stdout(inv), style.Bold(fmt.Sprintf(format, args...)))
}

// resolveTargets validates explicit paths or filters the configured
// defaults.
func resolveTargets(inv *command.Invocation) ([]string, error) {
	r := &target.Resolver{Fs: filesystem(inv), Dir: inv.Dir}
	set, err := r.Resolve(inv.Args, settings(inv).Targets)
	if err != nil {
		return nil, err
	}
	return set.Strings(), nil
}

// invocations expands tools into runner invocations, applying the
// [tools.<name>] overrides: skip drops the tool, command replaces the
// executable and args are inserted before the target paths.
func invocations(inv *command.Invocation, tools []tool, targets []string) []runner.Invocation {
	cfg := settings(inv)
	var out []runner.Invocation
	for _, t := range tools {
		tc := cfg.Tool(t.name)
		if tc.Skip {
			continue
		}
		args := append([]string(nil), t.args...)
		args = append(args, tc.Args...)
		if t.targets {
			args = append(args, targets...)
		}
		out = append(out, runner.Invocation{
			Tool:    t.name,
			Command: tc.Command,
			Args:    args,
			Dir:     inv.Dir,
		})
	}
	return out
}
