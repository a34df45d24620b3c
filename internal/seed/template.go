package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"unicode"

	"github.com/adt-dev/adt/internal/manifest"
	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Renderer renders profile templates with text/template and the seed
// function set.
type Renderer struct {
	Fs         afero.Fs
	ProjectDir string
	Project    *manifest.Project
}

// Funcs returns the template function map.
//
//	{{ .project_name | snake_case }}
//	{{ to_toml .dependencies }}
//	{{ include_if .use_docker "docker: true" }}
func (r *Renderer) Funcs() template.FuncMap {
	fs := r.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return template.FuncMap{
		"snake_case":  strcase.ToSnake,
		"kebab_case":  strcase.ToKebab,
		"pascal_case": strcase.ToCamel,
		"camel_case":  strcase.ToLowerCamel,
		"slugify":     Slugify,
		"pluralize":   inflection.Plural,
		"singularize": inflection.Singular,
		"to_toml":     ToTOML,
		"to_yaml":     ToYAML,
		"replace": func(s, old, repl string) string {
			return strings.ReplaceAll(s, old, repl)
		},
		"default": func(def, v any) any {
			if v == nil || v == "" {
				return def
			}
			return v
		},
		"include_if": func(cond bool, content string, otherwise ...string) string {
			if cond {
				return content
			}
			if len(otherwise) > 0 {
				return otherwise[0]
			}
			return ""
		},
		"path_exists": func(p string) bool {
			if !filepath.IsAbs(p) {
				p = filepath.Join(r.ProjectDir, p)
			}
			ok, err := afero.Exists(fs, p)
			return err == nil && ok
		},
		"manifest_get": func(key string, def ...any) any {
			if r.Project != nil {
				if v, ok := r.Project.Get(key); ok {
					return v
				}
			}
			if len(def) > 0 {
				return def[0]
			}
			return nil
		},
		"env": func(name string, def ...string) string {
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			if len(def) > 0 {
				return def[0]
			}
			return ""
		},
	}
}

// Render executes content as a template named name. References to
// undefined variables are errors.
func (r *Renderer) Render(name, content string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(r.Funcs()).
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.String(), nil
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify lowercases s, folds accents to ASCII and joins words with hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = slugStrip.ReplaceAllString(strings.ToLower(folded), "")
	folded = slugCollapse.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-_")
}

// ToTOML encodes v as TOML. Tables become documents; scalars and arrays
// become the right-hand side of an assignment.
func ToTOML(v any) (string, error) {
	if m, ok := v.(map[string]any); ok {
		out, err := toml.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("encoding TOML: %w", err)
		}
		return strings.TrimSpace(string(out)), nil
	}
	out, err := toml.Marshal(map[string]any{"_": v})
	if err != nil {
		return "", fmt.Errorf("encoding TOML: %w", err)
	}
	_, rhs, _ := strings.Cut(string(out), "=")
	return strings.TrimSpace(rhs), nil
}

// ToYAML encodes v as block-style YAML without a trailing newline.
func ToYAML(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding YAML: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
