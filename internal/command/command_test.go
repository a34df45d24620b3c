package command

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/spf13/pflag"
)

func fixedHandler(codes ...int) Handler {
	return func(context.Context, *Invocation) (*runner.Aggregate, error) {
		agg := &runner.Aggregate{}
		for i, c := range codes {
			agg.Add(&runner.Result{Tool: []string{"ruff", "mypy", "pytest"}[i], ExitCode: c})
		}
		return agg, nil
	}
}

func testRegistry() *Registry {
	return New(
		Command{Name: "check", Short: "Run linters", Handler: fixedHandler(0, 4)},
		Command{Name: "test", Short: "Run tests", Handler: fixedHandler(0)},
		Command{
			Name:       "security-check",
			Deprecated: "use audit instead",
			Handler:    fixedHandler(),
		},
		Command{
			Name:    "seed",
			Aliases: []string{"init"},
			Flags: func(fs *pflag.FlagSet) {
				fs.BoolP("dry-run", "n", false, "")
			},
			Handler: func(_ context.Context, inv *Invocation) (*runner.Aggregate, error) {
				dry, _ := inv.Flags.GetBool("dry-run")
				if !dry {
					return nil, apperr.Configf("expected dry-run")
				}
				return nil, nil
			},
		},
	)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	r := testRegistry()
	code, err := r.Dispatch(context.Background(), &Env{}, "frob", nil, nil)
	if code != apperr.ExitUsageError {
		t.Errorf("code = %d, want %d", code, apperr.ExitUsageError)
	}
	if !apperr.Is(err, apperr.KindUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	for _, name := range []string{"check", "seed", "test"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should list %q: %s", name, err)
		}
	}
}

func TestDispatch_PropagatesFirstFailingCode(t *testing.T) {
	code, err := testRegistry().Dispatch(context.Background(), &Env{}, "check", nil, nil)
	if code != 4 {
		t.Errorf("code = %d, want 4", code)
	}
	if err == nil || !strings.Contains(err.Error(), "mypy") {
		t.Errorf("error should name the failing tool, got %v", err)
	}
	if apperr.ExitCode(err) != 4 {
		t.Errorf("error exit code = %d, want 4", apperr.ExitCode(err))
	}
}

func TestDispatch_Success(t *testing.T) {
	code, err := testRegistry().Dispatch(context.Background(), &Env{}, "test", nil, nil)
	if code != 0 || err != nil {
		t.Errorf("Dispatch = (%d, %v), want (0, nil)", code, err)
	}
}

func TestDispatch_AliasAndFlags(t *testing.T) {
	r := testRegistry()
	c, ok := r.Lookup("init")
	if !ok || c.Name != "seed" {
		t.Fatalf("alias lookup failed: %+v %v", c, ok)
	}
	fs := c.NewFlagSet()
	if err := fs.Parse([]string{"-n"}); err != nil {
		t.Fatal(err)
	}
	if code, err := r.Dispatch(context.Background(), &Env{}, "init", nil, fs); code != 0 {
		t.Errorf("Dispatch = (%d, %v)", code, err)
	}
	code, err := r.Dispatch(context.Background(), &Env{}, "seed", nil, nil)
	if code != apperr.ExitConfigError || err == nil {
		t.Errorf("default flags: Dispatch = (%d, %v)", code, err)
	}
}

func TestDispatch_DeprecatedWarns(t *testing.T) {
	var stderr bytes.Buffer
	_, _ = testRegistry().Dispatch(context.Background(), &Env{Stderr: &stderr}, "security-check", nil, nil)
	if !strings.Contains(stderr.String(), "use audit instead") {
		t.Errorf("missing deprecation warning: %q", stderr.String())
	}
}

func TestNew_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate name")
		}
	}()
	New(Command{Name: "check"}, Command{Name: "lint", Aliases: []string{"check"}})
}

func TestNames_RegistrationOrder(t *testing.T) {
	got := strings.Join(testRegistry().Names(), ",")
	if got != "check,test,security-check,seed" {
		t.Errorf("Names() = %s", got)
	}
}
