package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// ParseProject reads a pyproject.toml file.
func ParseProject(fs afero.Fs, path string) (*Project, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	return ParseProjectBytes(data, path)
}

// ParseProjectBytes parses pyproject.toml content; path is used in errors.
func ParseProjectBytes(data []byte, path string) (*Project, error) {
	p, err := parseTyped[Project](data, path)
	if err != nil {
		return nil, err
	}
	raw, err := parseTyped[map[string]any](data, path)
	if err != nil {
		return nil, err
	}
	p.Path = path
	p.Raw = *raw
	return p, nil
}

// LoadProject parses dir/pyproject.toml. A missing file yields (nil, nil).
func LoadProject(fs afero.Fs, dir string) (*Project, error) {
	path := filepath.Join(dir, ProjectFile)
	p, err := ParseProject(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Name returns [project].name, falling back to [tool.poetry].name.
func (p *Project) Name() string {
	if p.Project.Name != "" {
		return p.Project.Name
	}
	return p.Tool.Poetry.Name
}

// Version returns [project].version, falling back to [tool.poetry].version.
func (p *Project) Version() string {
	if p.Project.Version != "" {
		return p.Project.Version
	}
	return p.Tool.Poetry.Version
}

// VersionTable returns the table holding the version ("project" or "tool.poetry"),
// or "" when neither declares one.
func (p *Project) VersionTable() string {
	switch {
	case p.Project.Version != "":
		return "project"
	case p.Tool.Poetry.Version != "":
		return "tool.poetry"
	default:
		return ""
	}
}

// Description returns the project description from either table.
func (p *Project) Description() string {
	if p.Project.Description != "" {
		return p.Project.Description
	}
	return p.Tool.Poetry.Description
}

// RequiresPython returns the Python constraint from [project] or from the
// poetry python dependency.
func (p *Project) RequiresPython() string {
	if p.Project.RequiresPython != "" {
		return p.Project.RequiresPython
	}
	if s, ok := p.Tool.Poetry.Dependencies["python"].(string); ok {
		return s
	}
	return ""
}

// Variables returns the [tool.adt.variables] table.
func (p *Project) Variables() map[string]any {
	return p.Tool.ADT.Variables
}

// ProjectMap returns the raw [project] table, or an empty map.
func (p *Project) ProjectMap() map[string]any {
	if m, ok := p.Raw["project"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Get looks up a dotted key ("tool.ruff.line-length") in the raw document.
func (p *Project) Get(key string) (any, bool) {
	var cur any = p.Raw
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// parseTyped unmarshals TOML data into T.
func parseTyped[T any](data []byte, path string) (*T, error) {
	var m T
	if err := toml.Unmarshal(data, &m); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
