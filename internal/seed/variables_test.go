package seed

import (
	"testing"
	"time"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestComputedVariables(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{
		"/work/myapp/src/myapp/__init__.py": "",
		"/work/myapp/.python-version":       "3.11.4\n",
	})

	got := ComputedVariables(fs, "/work/myapp", nil, fixedNow)
	want := Variables{
		"project_name":        "myapp",
		"project_version":     "0.1.0",
		"project_description": "",
		"python_version":      "3.11",
		"has_src_layout":      true,
		"has_tests":           false,
		"current_year":        2026,
		"project_dir":         "/work/myapp",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputedVariables mismatch (-want +got):\n%s", diff)
	}
}

func TestComputedVariables_FromManifest(t *testing.T) {
	m, err := manifest.ParseProjectBytes([]byte(`
[project]
name = "demo"
version = "2.0.0"
description = "A demo"
requires-python = ">=3.10,<4.0"
`), "pyproject.toml")
	if err != nil {
		t.Fatal(err)
	}

	got := ComputedVariables(afero.NewMemMapFs(), "/work/other", m, fixedNow)
	for k, want := range map[string]any{
		"project_name":        "demo",
		"project_version":     "2.0.0",
		"project_description": "A demo",
		"python_version":      "3.10",
	} {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
}

func TestComputedVariables_DefaultPython(t *testing.T) {
	got := ComputedVariables(afero.NewMemMapFs(), "/empty", nil, fixedNow)
	if got["python_version"] != DefaultPythonVersion {
		t.Errorf("python_version = %v, want %s", got["python_version"], DefaultPythonVersion)
	}
}

func TestResolveVariables_Precedence(t *testing.T) {
	m, err := manifest.ParseProjectBytes([]byte(`
[project]
name = "demo"

[tool.adt.variables]
license = "Apache-2.0"
author = "Manifest Author"
`), "pyproject.toml")
	if err != nil {
		t.Fatal(err)
	}

	p := &EffectiveProfile{Profile: Profile{Variables: map[string]any{
		"license":     "MIT",
		"line_length": int64(88),
		"author":      "Profile Author",
		"theme":       "profile",
		"org":         "profile-org",
	}}}

	got := ResolveVariables(p, Sources{
		Fs:         afero.NewMemMapFs(),
		ProjectDir: "/work/demo",
		Now:        fixedNow,
		Global:     map[string]any{"org": "global-org", "editor": "vim", "project_name": "global-name"},
		Manifest:   m,
		Project:    map[string]any{"author": "Project Author"},
		Environ:    []string{"ADT_VAR_THEME=env", "ADT_VAR_LINE_LENGTH=100", "HOME=/root"},
		CLI:        map[string]any{"theme": "cli"},
	})

	want := map[string]any{
		"project_name": "global-name",
		"editor":       "vim",
		"org":          "profile-org",
		"license":      "Apache-2.0",
		"author":       "Project Author",
		"line_length":  100,
		"theme":        "cli",
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %v (%T), want %v", k, got[k], got[k], w)
		}
	}
	if _, ok := got["home"]; ok {
		t.Error("non-prefixed environment leaked into variables")
	}
}

func TestParseCLIVars(t *testing.T) {
	got, err := ParseCLIVars([]string{
		"name=demo",
		"docker=yes",
		"ci=false",
		"workers=4",
		"ratio=0.5",
		`quoted="hello world"`,
		"single='x'",
		"expr=a=b",
		" spaced = value ",
	})
	if err != nil {
		t.Fatalf("ParseCLIVars() error: %v", err)
	}
	want := map[string]any{
		"name":    "demo",
		"docker":  true,
		"ci":      false,
		"workers": 4,
		"ratio":   0.5,
		"quoted":  "hello world",
		"single":  "x",
		"expr":    "a=b",
		"spaced":  "value",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCLIVars mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCLIVars_Invalid(t *testing.T) {
	for _, arg := range []string{"novalue", "=value"} {
		_, err := ParseCLIVars([]string{arg})
		if !apperr.Is(err, apperr.KindUsage) {
			t.Errorf("ParseCLIVars(%q) error = %v, want usage error", arg, err)
		}
	}
}

func TestContext(t *testing.T) {
	m, err := manifest.ParseProjectBytes([]byte("[project]\nname = \"demo\"\n"), "pyproject.toml")
	if err != nil {
		t.Fatal(err)
	}
	data := Context(Variables{"x": 1}, m, []string{"USER=alice"}, "1.2.3", []string{"base", "child"})

	if data["x"] != 1 {
		t.Errorf("x = %v", data["x"])
	}
	if data["project"].(map[string]any)["name"] != "demo" {
		t.Errorf("project = %v", data["project"])
	}
	if data["env"].(map[string]string)["USER"] != "alice" {
		t.Errorf("env = %v", data["env"])
	}
	adt := data["adt"].(map[string]any)
	if adt["version"] != "1.2.3" {
		t.Errorf("adt.version = %v", adt["version"])
	}
	if diff := cmp.Diff([]string{"base", "child"}, adt["profiles"]); diff != "" {
		t.Errorf("adt.profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckVariables(t *testing.T) {
	p := &EffectiveProfile{Profile: Profile{Name: "web", Meta: map[string]VarMeta{
		"framework": {Required: true, Choices: []any{"flask", "django"}},
		"port":      {Choices: []any{int64(80), int64(8080)}},
	}}}

	tests := []struct {
		name    string
		vars    Variables
		wantErr bool
	}{
		{"valid", Variables{"framework": "flask", "port": 8080}, false},
		{"optional unset", Variables{"framework": "django"}, false},
		{"required missing", Variables{"port": 80}, true},
		{"required empty", Variables{"framework": ""}, true},
		{"bad choice", Variables{"framework": "rails"}, true},
		{"bad numeric choice", Variables{"framework": "flask", "port": 81}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.CheckVariables(tt.vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckVariables() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.Is(err, apperr.KindConfig) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}
