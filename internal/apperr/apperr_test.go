package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"usage", Usagef("unknown command %q", "frob"), ExitUsageError},
		{"environment", Environmentf("tool %q not found", "ruff"), ExitEnvError},
		{"config", Configf("bad file"), ExitConfigError},
		{"tool failure keeps code", ToolFailure(5, "pytest failed"), 5},
		{"tool failure without code", ToolFailure(0, "cruft"), ExitFailure},
		{"wrapped", fmt.Errorf("running check: %w", Environmentf("missing")), ExitEnvError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Config(errors.New("line 3: unexpected token"), "reading %s", "config.toml")
	if got := err.Error(); got != "reading config.toml: line 3: unexpected token" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, KindConfig) {
		t.Error("expected KindConfig")
	}
	if KindOf(errors.New("x")) != 0 {
		t.Error("expected zero kind for unclassified error")
	}
}
