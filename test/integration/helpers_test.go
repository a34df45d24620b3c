//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adt-dev/adt/internal/cli"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	ConfigDir  string // ADT_CONFIG_DIR, holds config.toml and profiles/
	BinDir     string // fake tools, first on PATH
	LogFile    string // every fake tool appends its argv here
	ProjectDir string // a mock Python project
}

// setupTestEnv creates isolated temp directories and points ADT_CONFIG_DIR
// and PATH at them. The env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ConfigDir:  t.TempDir(),
		BinDir:     t.TempDir(),
		ProjectDir: t.TempDir(),
	}
	env.LogFile = filepath.Join(env.BinDir, "calls.log")

	t.Setenv("ADT_CONFIG_DIR", env.ConfigDir)
	t.Setenv("PATH", env.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("ADT_TEST_LOG", env.LogFile)

	for _, sub := range []string{"src/demo", "tests"} {
		if err := os.MkdirAll(filepath.Join(env.ProjectDir, sub), 0755); err != nil {
			t.Fatalf("creating %s: %v", sub, err)
		}
	}
	writeFile(t, filepath.Join(env.ProjectDir, "pyproject.toml"), `[project]
name = "demo"
version = "0.3.1"
description = "Integration fixture"
requires-python = ">=3.11"
`)
	return env
}

// fakeTool installs an executable named name that logs its arguments and
// exits with code.
func fakeTool(t *testing.T, env *testEnv, name string, code int) {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\necho \"%s $*\" >> \"$ADT_TEST_LOG\"\nexit %d\n", name, code)
	path := filepath.Join(env.BinDir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake tool %s: %v", name, err)
	}
}

// fakeTools installs every tool adt may launch, all succeeding.
func fakeTools(t *testing.T, env *testEnv) {
	t.Helper()
	for _, name := range []string{
		"ruff", "flake8", "mypy", "pyright", "vulture", "pytest", "ty",
		"black", "isort", "pip-audit", "bandit", "reuse", "poetry", "git",
	} {
		fakeTool(t, env, name, 0)
	}
}

// runADT runs the CLI in the project directory and returns its error.
func runADT(t *testing.T, env *testEnv, args ...string) error {
	t.Helper()
	return cli.Execute(context.Background(), "0.0.0-test", "none", "today",
		append([]string{"-C", env.ProjectDir}, args...))
}

// calls returns the logged tool invocations, one per line.
func calls(t *testing.T, env *testEnv) []string {
	t.Helper()
	data, err := os.ReadFile(env.LogFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading %s: %v", env.LogFile, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
