//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/adt-dev/adt/internal/apperr"
)

func TestCheckRunsEveryToolAndKeepsFirstCode(t *testing.T) {
	env := setupTestEnv(t)
	fakeTools(t, env)
	fakeTool(t, env, "flake8", 2)
	fakeTool(t, env, "vulture", 3)

	err := runADT(t, env, "check")
	if got := apperr.ExitCode(err); got != 2 {
		t.Fatalf("exit code = %d (%v), want 2", got, err)
	}
	want := []string{
		"ruff check src tests",
		"flake8 src tests",
		"mypy --show-error-codes src tests",
		"pyright ",
		"vulture --min-confidence 80 src tests",
	}
	got := calls(t, env)
	if len(got) != len(want) {
		t.Fatalf("calls = %q, want %d entries", got, len(want))
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != strings.TrimSpace(want[i]) {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAllStopsAfterFailedCheck(t *testing.T) {
	env := setupTestEnv(t)
	fakeTools(t, env)
	fakeTool(t, env, "ruff", 1)

	err := runADT(t, env, "all")
	if apperr.ExitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", apperr.ExitCode(err), err)
	}
	for _, line := range calls(t, env) {
		if strings.HasPrefix(line, "pytest") {
			t.Errorf("pytest ran after check failed: %q", line)
		}
	}
}

func TestMissingToolIsEnvironmentError(t *testing.T) {
	env := setupTestEnv(t)
	t.Setenv("PATH", env.BinDir)

	err := runADT(t, env, "test")
	if apperr.ExitCode(err) != apperr.ExitEnvError {
		t.Fatalf("exit code = %d (%v), want %d", apperr.ExitCode(err), err, apperr.ExitEnvError)
	}
	if !strings.Contains(err.Error(), "pytest") {
		t.Errorf("error %q does not name the tool", err)
	}
}

func TestMissingTargetIsUsageError(t *testing.T) {
	env := setupTestEnv(t)
	fakeTools(t, env)

	err := runADT(t, env, "format", "src", "nowhere")
	if apperr.ExitCode(err) != apperr.ExitUsageError {
		t.Fatalf("exit code = %d (%v), want %d", apperr.ExitCode(err), err, apperr.ExitUsageError)
	}
	if got := calls(t, env); len(got) != 0 {
		t.Errorf("tools ran despite the usage error: %q", got)
	}
}

func TestSeedProfileWithScript(t *testing.T) {
	env := setupTestEnv(t)
	profile := filepath.Join(env.ConfigDir, "profiles", "service")
	writeFile(t, filepath.Join(profile, "profile.toml"), `[profile]
name = "service"
extends = "default"

[variables]
port = 8000

[variables.meta.port]
choices = [8000, 9000]

[[script]]
path = "scripts/post.sh"

[scripts.env]
MARKER = "seeded.marker"
`)
	writeFile(t, filepath.Join(profile, "templates", "service.toml.tmpl"),
		"[service]\nname = \"{{ .project_name | kebab_case }}\"\nport = {{ .port }}\n")
	writeFile(t, filepath.Join(profile, "scripts", "post.sh"), "#!/bin/sh\ntouch \"$MARKER\"\n")

	if err := runADT(t, env, "seed", "-p", "service", "-y", "-v", "port=9000"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	assertFileContains(t, filepath.Join(env.ProjectDir, "service.toml"), `name = "demo"`)
	assertFileContains(t, filepath.Join(env.ProjectDir, "service.toml"), "port = 9000")
	assertFileContains(t, filepath.Join(env.ProjectDir, "ruff.toml"), `target-version = "py311"`)
	assertFileExists(t, filepath.Join(env.ProjectDir, "seeded.marker"))

	err := runADT(t, env, "seed", "-p", "service", "-v", "port=1234")
	if apperr.ExitCode(err) != apperr.ExitConfigError {
		t.Errorf("bad choice exit code = %d (%v), want %d", apperr.ExitCode(err), err, apperr.ExitConfigError)
	}
}

func TestSeedDryRunWritesNothing(t *testing.T) {
	env := setupTestEnv(t)

	if err := runADT(t, env, "seed", "--dry-run"); err != nil {
		t.Fatalf("seed --dry-run: %v", err)
	}
	for _, name := range []string{".editorconfig", "ruff.toml", ".gitignore"} {
		assertFileNotExists(t, filepath.Join(env.ProjectDir, name))
	}
}

func TestBumpVersionCommitsAndTags(t *testing.T) {
	env := setupTestEnv(t)
	fakeTools(t, env)

	if err := runADT(t, env, "bump-version", "minor"); err != nil {
		t.Fatalf("bump-version: %v", err)
	}
	assertFileContains(t, filepath.Join(env.ProjectDir, "pyproject.toml"), `version = "0.4.0"`)
	got := calls(t, env)
	for _, want := range []string{"git diff --quiet", "git add pyproject.toml", "git tag 0.4.0"} {
		if !slices.Contains(got, want) {
			t.Errorf("calls %q missing %q", got, want)
		}
	}
}

func TestCleanRemovesCaches(t *testing.T) {
	env := setupTestEnv(t)
	for _, p := range []string{
		"src/demo/__pycache__/mod.cpython-311.pyc",
		"tests/__pycache__/test_x.cpython-311.pyc",
		".pytest_cache/README.md",
	} {
		writeFile(t, filepath.Join(env.ProjectDir, p), "")
	}

	if err := runADT(t, env, "clean"); err != nil {
		t.Fatalf("clean: %v", err)
	}
	for _, p := range []string{"src/demo/__pycache__", "tests/__pycache__", ".pytest_cache"} {
		if _, err := os.Stat(filepath.Join(env.ProjectDir, p)); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
	assertFileExists(t, filepath.Join(env.ProjectDir, "pyproject.toml"))
}
