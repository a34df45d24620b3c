// Package command holds the immutable catalog of adt subcommands and
// converts handler outcomes into process exit codes.
package command

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/style"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// Env is what a handler needs from the outside world.
type Env struct {
	Config  *config.Config
	Runner  runner.Runner
	Fs      afero.Fs
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Version string

	// Registry lets composite handlers run other commands.
	Registry *Registry
}

// Invocation is one call of a command.
type Invocation struct {
	*Env
	Name  string
	Args  []string
	Flags *pflag.FlagSet
}

// Handler runs a command. A nil aggregate is treated as success.
type Handler func(ctx context.Context, inv *Invocation) (*runner.Aggregate, error)

// Command describes one subcommand.
type Command struct {
	Name    string
	Aliases []string
	Use     string // argument synopsis, e.g. "[paths...]"
	Short   string
	Long    string
	// Deprecated, when set, is printed as a warning before the handler runs.
	Deprecated string
	// Flags declares the command's flags.
	Flags   func(fs *pflag.FlagSet)
	Handler Handler
}

// Registry maps names to commands. It is built once and never mutated.
type Registry struct {
	byName map[string]*Command
	order  []string
}

// New builds a registry. Duplicate names or aliases are programming errors.
func New(cmds ...Command) *Registry {
	r := &Registry{byName: make(map[string]*Command, len(cmds))}
	for i := range cmds {
		c := cmds[i]
		for _, key := range append([]string{c.Name}, c.Aliases...) {
			if _, dup := r.byName[key]; dup {
				panic(fmt.Sprintf("command: duplicate name %q", key))
			}
			r.byName[key] = &c
		}
		r.order = append(r.order, c.Name)
	}
	return r
}

// Lookup returns the command registered under name or alias.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.byName[name]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

// Names returns the primary command names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Commands returns the commands in registration order.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, *r.byName[n])
	}
	return out
}

// NewFlagSet returns a flag set populated with the command's flags.
func (c Command) NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.Name, pflag.ContinueOnError)
	if c.Flags != nil {
		c.Flags(fs)
	}
	return fs
}

// Run invokes the named command's handler and returns its aggregate. Unknown
// names are usage errors listing the available commands.
func (r *Registry) Run(ctx context.Context, env *Env, name string, args []string, flags *pflag.FlagSet) (*runner.Aggregate, error) {
	c, ok := r.byName[name]
	if !ok {
		names := r.Names()
		sort.Strings(names)
		return nil, apperr.Usagef("unknown command %q (available: %s)", name, strings.Join(names, ", "))
	}
	if flags == nil {
		flags = c.NewFlagSet()
	}
	if c.Deprecated != "" && env.Stderr != nil {
		style.Warnf(env.Stderr, "%q is deprecated: %s", name, c.Deprecated)
	}

	subEnv := *env
	subEnv.Registry = r
	ctxlog.FromContext(ctx).Debug("dispatching command", "command", c.Name, "args", args)

	agg, err := c.Handler(ctx, &Invocation{Env: &subEnv, Name: c.Name, Args: args, Flags: flags})
	if agg == nil {
		agg = &runner.Aggregate{}
	}
	return agg, err
}

// Dispatch runs the named command and converts the outcome into an exit
// code: 0 on full success, the first failing tool's code otherwise. The
// returned error, when non-nil, carries the same code via apperr.
func (r *Registry) Dispatch(ctx context.Context, env *Env, name string, args []string, flags *pflag.FlagSet) (int, error) {
	agg, err := r.Run(ctx, env, name, args, flags)
	if err != nil {
		return apperr.ExitCode(err), err
	}
	if agg.Success() {
		return apperr.ExitSuccess, nil
	}
	code := agg.ExitCode()
	failed := agg.Failed
	if failed == "" {
		failed = agg.FirstFailure().Tool
	}
	return code, apperr.ToolFailure(code, "%s: %s failed", name, failed)
}
