package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/style"
)

// Invocation describes one external tool call.
type Invocation struct {
	// Tool is the display name, also the executable when Command is empty.
	Tool    string
	Command string
	Args    []string
	Dir     string
	// Env entries (KEY=VALUE) are layered over the current environment.
	Env []string
	// Capture buffers stdout into Result.Stdout in addition to streaming it.
	Capture bool
}

// Executable returns the binary to launch.
func (i Invocation) Executable() string {
	if i.Command != "" {
		return i.Command
	}
	return i.Tool
}

// String renders the command line for echoing.
func (i Invocation) String() string {
	return strings.Join(append([]string{i.Executable()}, i.Args...), " ")
}

// Result is the outcome of one invocation.
type Result struct {
	Tool     string
	Argv     []string
	ExitCode int
	Stdout   string
	Duration time.Duration
}

// Success reports whether the tool exited with status 0.
func (r *Result) Success() bool { return r.ExitCode == 0 }

// Runner executes invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, inv Invocation) (*Result, error) { return f(ctx, inv) }

// ExecRunner runs invocations as child processes.
type ExecRunner struct {
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// Echo prints each command line before running it.
	Echo bool
	// LookPath resolves executables; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Run launches the tool and waits for it. A missing executable is an
// environment error; a non-zero exit is reported in the Result, not as an
// error.
func (e *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	lookPath := e.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(inv.Executable())
	if err != nil {
		return nil, &apperr.Error{
			Kind: apperr.KindEnvironment,
			Msg:  fmt.Sprintf("required tool %q not found in PATH", inv.Executable()),
			Err:  err,
		}
	}

	stdout := e.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if e.Echo {
		fmt.Fprintln(stdout, style.Dim("> "+inv.String()))
	}

	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), inv.Env)
	}

	var stdoutBuf bytes.Buffer
	cmd.Stdout = stdout
	if inv.Capture {
		cmd.Stdout = io.MultiWriter(stdout, &stdoutBuf)
	}
	cmd.Stderr = stderr

	logger.Debug("running tool", "tool", inv.Tool, "bin", bin, "args", inv.Args, "dir", inv.Dir)
	start := time.Now()
	err = cmd.Run()

	res := &Result{
		Tool:     inv.Tool,
		Argv:     append([]string{inv.Executable()}, inv.Args...),
		Stdout:   stdoutBuf.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("running %s: %w", inv.Tool, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			logger.Debug("tool failed", "tool", inv.Tool, "code", res.ExitCode, "duration", res.Duration)
			return res, nil
		}
		return res, fmt.Errorf("executing %s: %w", inv.Tool, err)
	}

	logger.Debug("tool finished", "tool", inv.Tool, "duration", res.Duration)
	return res, nil
}
