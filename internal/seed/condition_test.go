package seed

import (
	"testing"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/spf13/afero"
)

func TestEvaluator_Eval(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"/proj/Dockerfile": "FROM python\n"})

	project, err := manifest.ParseProjectBytes([]byte(`
[project]
name = "demo"
requires-python = ">=3.11"

[tool.poetry]
name = "demo"
`), "pyproject.toml")
	if err != nil {
		t.Fatal(err)
	}

	vars := Variables{
		"use_docker":     true,
		"use_ci":         false,
		"python_version": "3.12",
		"license":        "MIT",
		"features":       []any{"api", "cli"},
		"workers":        int64(4),
	}
	named := map[string]string{"needs_dockerfile": "use_docker && !path_exists(\"Dockerfile\")"}
	e := NewEvaluator(vars, named, fs, "/proj", project)

	tests := []struct {
		cond string
		want bool
	}{
		{"", true},
		{"use_docker", true},
		{"use_ci", false},
		{"!use_ci", true},
		{"undefined_var", false},
		{"undefined_var || use_docker", true},
		{"docker.enabled", false},
		{"docker.enabled && use_docker", false},
		{"license == \"MIT\"", true},
		{"lower(license) == \"mit\"", true},
		{"workers > 2", true},
		{"contains(features, \"cli\")", true},
		{"length(features) == 3", false},
		{"path_exists(\"Dockerfile\")", true},
		{"path_exists(\"missing.txt\")", false},
		{"needs_dockerfile", false},
		{"version_at_least(python_version, \"3.10\")", true},
		{"version_at_least(python_version, \"3.13\")", false},
		{"manifest_get(\"project.name\") == \"demo\"", true},
		{"manifest_get(\"project.nope\", \"x\") == \"x\"", true},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got, err := e.Eval(tt.cond)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.cond, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	e := NewEvaluator(Variables{"name": "x"}, nil, afero.NewMemMapFs(), "/", nil)
	for _, cond := range []string{"use_docker &&", "name", "nosuchfunc(1)"} {
		t.Run(cond, func(t *testing.T) {
			_, err := e.Eval(cond)
			if !apperr.Is(err, apperr.KindConfig) {
				t.Errorf("Eval(%q) error = %v, want config error", cond, err)
			}
		})
	}
}

func TestCheckCondition(t *testing.T) {
	if err := CheckCondition("a && (b || c)"); err != nil {
		t.Errorf("valid condition rejected: %v", err)
	}
	if err := CheckCondition("a && (b"); err == nil {
		t.Error("expected syntax error")
	}
}
