package seed

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/spf13/afero"
)

// VarEnvPrefix marks environment variables that feed the seed variable set.
const VarEnvPrefix = "ADT_VAR_"

// DefaultPythonVersion is used when the project does not pin one.
const DefaultPythonVersion = "3.12"

// Variables is the resolved name to value map a profile renders with.
type Variables map[string]any

// Names returns the variable names, sorted.
func (v Variables) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sources holds every input of variable resolution, lowest precedence
// first.
type Sources struct {
	Fs         afero.Fs
	ProjectDir string
	Now        time.Time

	Global   map[string]any
	Manifest *manifest.Project
	Project  map[string]any
	Environ  []string
	CLI      map[string]any
}

// ResolveVariables layers, from lowest to highest precedence: computed
// project facts, global config variables, profile defaults, manifest
// [tool.adt.variables], project config variables, ADT_VAR_* environment
// and CLI values. Later sources replace whole values.
func ResolveVariables(p *EffectiveProfile, src Sources) Variables {
	out := ComputedVariables(src.Fs, src.ProjectDir, src.Manifest, src.Now)
	layers := []map[string]any{src.Global}
	if p != nil {
		layers = append(layers, p.Variables)
	}
	if src.Manifest != nil {
		layers = append(layers, src.Manifest.Variables())
	}
	layers = append(layers, src.Project, EnvVariables(src.Environ), src.CLI)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

var requiresPythonRe = regexp.MustCompile(`(\d+\.\d+)`)

// ComputedVariables derives facts about the project in dir. m may be nil.
func ComputedVariables(fs afero.Fs, dir string, m *manifest.Project, now time.Time) Variables {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if now.IsZero() {
		now = time.Now()
	}
	abs := dir
	if a, err := filepath.Abs(dir); err == nil {
		abs = a
	}

	vars := Variables{
		"project_name":        filepath.Base(abs),
		"project_version":     "0.1.0",
		"project_description": "",
		"python_version":      detectPythonVersion(fs, dir, m),
		"has_src_layout":      isDir(fs, filepath.Join(dir, "src")),
		"has_tests":           isDir(fs, filepath.Join(dir, "tests")),
		"current_year":        now.Year(),
		"project_dir":         abs,
	}
	if m != nil {
		if name := m.Name(); name != "" {
			vars["project_name"] = name
		}
		if v := m.Version(); v != "" {
			vars["project_version"] = v
		}
		vars["project_description"] = m.Description()
	}
	return vars
}

func detectPythonVersion(fs afero.Fs, dir string, m *manifest.Project) string {
	if data, err := afero.ReadFile(fs, filepath.Join(dir, ".python-version")); err == nil {
		parts := strings.Split(strings.TrimSpace(string(data)), ".")
		if len(parts) >= 2 {
			return parts[0] + "." + parts[1]
		}
	}
	if m != nil {
		if match := requiresPythonRe.FindString(m.RequiresPython()); match != "" {
			return match
		}
	}
	return DefaultPythonVersion
}

func isDir(fs afero.Fs, p string) bool {
	ok, err := afero.DirExists(fs, p)
	return err == nil && ok
}

// EnvVariables extracts ADT_VAR_<NAME> entries from environ, keyed by the
// lower-cased name. Values are typed like CLI values.
func EnvVariables(environ []string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, found := strings.CutPrefix(k, VarEnvPrefix)
		if !found || name == "" {
			continue
		}
		out[strings.ToLower(name)] = ParseValue(v)
	}
	return out
}

// ParseCLIVars parses repeated name=value arguments. A pair without "=" or
// with an empty name is a usage error.
func ParseCLIVars(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, apperr.Usagef("invalid variable %q: expected name=value", pair)
		}
		out[name] = ParseValue(strings.TrimSpace(value))
	}
	return out, nil
}

// ParseValue types a textual value: booleans, integers, floats, then
// strings with surrounding quotes removed.
func ParseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Context builds the template data: the variables at top level plus
// project (the manifest [project] table), env and adt.
func Context(vars Variables, m *manifest.Project, environ []string, version string, chain []string) map[string]any {
	data := make(map[string]any, len(vars)+3)
	for k, v := range vars {
		data[k] = v
	}
	project := map[string]any{}
	if m != nil {
		if pm := m.ProjectMap(); pm != nil {
			project = pm
		}
	}
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	data["project"] = project
	data["env"] = env
	data["adt"] = map[string]any{
		"version":  version,
		"profiles": append([]string(nil), chain...),
	}
	return data
}

// CheckVariables enforces the profile's variable metadata: required
// variables must be set and values with choices must be one of them.
func (p *EffectiveProfile) CheckVariables(vars Variables) error {
	names := make([]string, 0, len(p.Meta))
	for name := range p.Meta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		meta := p.Meta[name]
		v, ok := vars[name]
		if !ok || v == nil || v == "" {
			if meta.Required {
				return apperr.Configf("profile %s requires variable %q (set it with -v %s=VALUE)", p.Name, name, name)
			}
			continue
		}
		if len(meta.Choices) > 0 && !oneOf(v, meta.Choices) {
			return apperr.Configf("variable %q = %v is not one of %v", name, v, meta.Choices)
		}
	}
	return nil
}

func oneOf(v any, choices []any) bool {
	s := fmt.Sprint(v)
	for _, c := range choices {
		if fmt.Sprint(c) == s {
			return true
		}
	}
	return false
}
