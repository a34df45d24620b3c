package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/devtools"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/updater"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	*app
	out   *bytes.Buffer
	err   *bytes.Buffer
	calls []runner.Invocation
	codes map[string]int
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("ADT_CONFIG_DIR", t.TempDir())

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj/src", 0755))
	require.NoError(t, fs.MkdirAll("/proj/tests", 0755))

	ta := &testApp{out: &bytes.Buffer{}, err: &bytes.Buffer{}, codes: map[string]int{}}
	ta.app = &app{
		build:    buildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2026-01-02"},
		stdout:   ta.out,
		stderr:   ta.err,
		stdin:    strings.NewReader(""),
		fs:       fs,
		registry: devtools.NewRegistry(),
		checker: &updater.Checker{Owner: "adt-dev", Repository: "adt", Latest: func(context.Context) (string, error) {
			return "1.4.0", nil
		}},
		runner: runner.RunnerFunc(func(_ context.Context, inv runner.Invocation) (*runner.Result, error) {
			ta.calls = append(ta.calls, inv)
			return &runner.Result{Tool: inv.Tool, ExitCode: ta.codes[inv.Tool]}, nil
		}),
	}
	return ta
}

func (ta *testApp) exec(args ...string) error {
	return ta.run(context.Background(), args)
}

func (ta *testApp) lines() []string {
	var out []string
	for _, c := range ta.calls {
		out = append(out, c.String())
	}
	return out
}

func TestVersionFlag(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-V"))
	assert.Equal(t, "adt 1.2.3\n", ta.out.String())
}

func TestVersionCommand(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("version"))
	assert.Equal(t, "adt version 1.2.3 (commit: abc1234, built: 2026-01-02)\n", ta.out.String())

	ta.out.Reset()
	require.NoError(t, ta.exec("version", "--short"))
	assert.Equal(t, "1.2.3\n", ta.out.String())
}

func TestVersionCommand_JSONWithCheck(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("version", "--json", "--check"))

	var got struct {
		Version string          `json:"version"`
		Commit  string          `json:"commit"`
		Latest  *updater.Result `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &got))
	assert.Equal(t, "1.2.3", got.Version)
	assert.Equal(t, "abc1234", got.Commit)
	require.NotNil(t, got.Latest)
	assert.True(t, got.Latest.Outdated)
	assert.Equal(t, "1.4.0", got.Latest.Latest)
}

func TestVersionCommand_Check(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("version", "--check"))
	assert.Contains(t, ta.out.String(), "Update available: 1.2.3 -> 1.4.0")
}

func TestNoArgsPrintsHelp(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec())
	out := ta.out.String()
	assert.Contains(t, out, "Global flags")
	assert.Contains(t, out, "bump-version")
	assert.NotContains(t, out, "security-check", "deprecated commands are hidden")
}

func TestUnknownCommand(t *testing.T) {
	ta := newTestApp(t)
	err := ta.exec("-C", "/proj", "lint")
	require.Error(t, err)
	assert.Equal(t, apperr.ExitUsageError, apperr.ExitCode(err))
	assert.Contains(t, err.Error(), "available:")
	assert.Contains(t, err.Error(), "check")
}

func TestUnknownFlag(t *testing.T) {
	ta := newTestApp(t)
	err := ta.exec("-C", "/proj", "check", "--bogus")
	require.Error(t, err)
	assert.Equal(t, apperr.ExitUsageError, apperr.ExitCode(err))
	assert.Empty(t, ta.calls)

	err = ta.exec("--bogus", "check")
	assert.Equal(t, apperr.ExitUsageError, apperr.ExitCode(err))
}

func TestCheck_PropagatesFirstFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.codes["mypy"] = 2
	ta.codes["vulture"] = 3

	err := ta.exec("-C", "/proj", "check")
	require.Error(t, err)
	assert.Equal(t, 2, apperr.ExitCode(err))
	assert.Len(t, ta.calls, 5)
	assert.Equal(t, "ruff check src tests", ta.lines()[0])
}

func TestCheck_ExplicitPaths(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "test", "tests"))
	assert.Equal(t, []string{"pytest tests"}, ta.lines())

	err := ta.exec("-C", "/proj", "test", "missing")
	assert.Equal(t, apperr.ExitUsageError, apperr.ExitCode(err))
}

func TestAll_StopsAfterCheck(t *testing.T) {
	ta := newTestApp(t)
	ta.codes["ruff"] = 1

	err := ta.exec("-C", "/proj", "all")
	require.Error(t, err)
	assert.Equal(t, 1, apperr.ExitCode(err))
	for _, c := range ta.calls {
		assert.NotEqual(t, "pytest", c.Tool)
	}
}

func TestSetOverride(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "--set", "audit.source=app", "audit"))
	assert.Contains(t, ta.lines(), "bandit -q -c pyproject.toml -r app")

	err := ta.exec("--set", "novalue", "-C", "/proj", "audit")
	assert.Equal(t, apperr.ExitUsageError, apperr.ExitCode(err))
}

func TestProjectConfigToolOverride(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, afero.WriteFile(ta.fs, "/proj/.adt-config.toml", []byte(`
targets = ["src"]

[tools.pytest]
args = ["-x"]
`), 0644))

	require.NoError(t, ta.exec("-C", "/proj", "test"))
	assert.Equal(t, []string{"pytest -x src"}, ta.lines())
}

func TestMalformedProjectConfig(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, afero.WriteFile(ta.fs, "/proj/.adt-config.toml", []byte("targets = [\n"), 0644))

	err := ta.exec("-C", "/proj", "check")
	require.Error(t, err)
	assert.Equal(t, apperr.ExitConfigError, apperr.ExitCode(err))
	assert.Contains(t, err.Error(), ".adt-config.toml")
}

func TestSecurityCheck_StillRuns(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "security-check"))
	assert.Contains(t, ta.err.String(), "deprecated")
	assert.Len(t, ta.calls, 3)
}

func TestSeed_VarFlagAfterCommand(t *testing.T) {
	ta := newTestApp(t)

	// -v before the command is --verbose, after "seed" it is --var.
	require.NoError(t, ta.exec("-v", "-C", "/proj", "seed", "-n", "-v", "line_length=120"))
	out := ta.out.String()
	assert.Contains(t, out, "would create ruff.toml")
	assert.Contains(t, out, "Dry run")

	ok, _ := afero.Exists(ta.fs, "/proj/ruff.toml")
	assert.False(t, ok)
}

func TestSeed_WritesIntoProject(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "seed", "--var", "line_length=120"))

	data, err := afero.ReadFile(ta.fs, "/proj/ruff.toml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "line-length = 120")
}

func TestConfigShow(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "--set", "seed.default_profile=web", "config", "show"))
	out := ta.out.String()
	assert.Contains(t, out, "targets:")
	assert.Contains(t, out, "default_profile: web")
}

func TestConfigPath(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.exec("-C", "/proj", "config", "path"))
	out := ta.out.String()
	assert.Contains(t, out, filepath.Join(os.Getenv("ADT_CONFIG_DIR"), "config.toml"))
	assert.Contains(t, out, "/proj/.adt-config.toml")
}

func TestConfigInit(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()

	require.NoError(t, ta.exec("-C", dir, "config", "init", "--project"))
	path := filepath.Join(dir, ".adt-config.toml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[tools.mypy]")

	assert.Error(t, ta.exec("-C", dir, "config", "init", "--project"), "existing file is kept")
	assert.NoError(t, ta.exec("-C", dir, "config", "init", "--project", "--force"))
}

func TestParseGlobals(t *testing.T) {
	g, rest, err := parseGlobals([]string{"-d", "--set", "a=b", "seed", "-v", "x=1", "-d"})
	require.NoError(t, err)
	assert.True(t, g.debug)
	assert.False(t, g.verbose)
	assert.Equal(t, []string{"a=b"}, g.set)
	assert.Equal(t, []string{"seed", "-v", "x=1", "-d"}, rest)
}
