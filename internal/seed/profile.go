package seed

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Conventional profile layout.
const (
	TemplatesDir   = "templates"
	ScriptsDir     = "scripts"
	TemplateSuffix = ".tmpl"
	DefaultVersion = "1.0.0"
)

// FileTemplate is one file a profile contributes.
type FileTemplate struct {
	// Source is relative to the profile directory.
	Source    string
	Dest      string
	Condition string
	// Profile names the profile that contributed the entry.
	Profile string

	fs   afero.Fs
	root string
}

// IsTemplate reports whether the source is rendered rather than copied.
func (f FileTemplate) IsTemplate() bool {
	return strings.HasSuffix(f.Source, TemplateSuffix)
}

// SourcePath returns the source location inside the profile filesystem.
func (f FileTemplate) SourcePath() string {
	return joinFS(f.fs, f.root, f.Source)
}

// Script is one post-render step.
type Script struct {
	// Path is relative to the profile directory.
	Path      string
	Condition string
	Profile   string

	// File is the absolute on-disk location, empty for embedded profiles.
	File string
}

// VarMeta documents one profile variable.
type VarMeta struct {
	Description string `toml:"description" yaml:"description,omitempty"`
	Required    bool   `toml:"required" yaml:"required,omitempty"`
	Choices     []any  `toml:"choices" yaml:"choices,omitempty"`
}

// Profile is one profile as declared on disk, or the merge of several.
type Profile struct {
	Name        string
	Description string
	Version     string
	Extends     []string
	Dir         string

	Variables  map[string]any
	Meta       map[string]VarMeta
	Files      []FileTemplate
	Scripts    []Script
	ScriptEnv  map[string]string
	Conditions map[string]string
}

// EffectiveProfile is a fully resolved profile.
type EffectiveProfile struct {
	Profile
	// Chain lists contributing profiles, parents first.
	Chain []string
}

type profileDoc struct {
	Profile struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Version     string `toml:"version"`
		Extends     any    `toml:"extends"`
	} `toml:"profile"`
	Variables map[string]any `toml:"variables"`
	File      []struct {
		Source    string `toml:"source"`
		Dest      string `toml:"dest"`
		Condition string `toml:"condition"`
	} `toml:"file"`
	Script []struct {
		Path      string `toml:"path"`
		Condition string `toml:"condition"`
	} `toml:"script"`
	Scripts struct {
		Env map[string]string `toml:"env"`
	} `toml:"scripts"`
	Conditions map[string]string `toml:"conditions"`
}

// readProfile loads the profile rooted at dir in fs. A directory without
// profile.toml is a valid profile made of its templates/ and scripts/.
func readProfile(fs afero.Fs, dir string) (*Profile, error) {
	if ok, err := afero.DirExists(fs, dir); err != nil || !ok {
		return nil, apperr.Configf("profile directory not found: %s", dir)
	}

	p := &Profile{
		Name:       path.Base(filepath.ToSlash(dir)),
		Version:    DefaultVersion,
		Dir:        dir,
		Variables:  map[string]any{},
		Meta:       map[string]VarMeta{},
		ScriptEnv:  map[string]string{},
		Conditions: map[string]string{},
	}

	docPath := joinFS(fs, dir, manifest.ProfileFile)
	data, err := afero.ReadFile(fs, docPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Config(err, "reading %s", docPath)
	}

	var doc profileDoc
	if err == nil {
		result, verr := manifest.ValidateProfile(data)
		if verr != nil {
			return nil, apperr.Config(verr, "%s", docPath)
		}
		if !result.Valid {
			return nil, apperr.Configf("%s: %s", docPath, result.Summary())
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, apperr.Config(err, "decoding %s", docPath)
		}
	}

	if doc.Profile.Name != "" {
		p.Name = doc.Profile.Name
	}
	p.Description = doc.Profile.Description
	if doc.Profile.Version != "" {
		p.Version = doc.Profile.Version
	}
	p.Extends = extendsList(doc.Profile.Extends)

	for k, v := range doc.Variables {
		if k == "meta" {
			continue
		}
		p.Variables[k] = v
	}
	if meta, ok := doc.Variables["meta"].(map[string]any); ok {
		for name, raw := range meta {
			p.Meta[name] = decodeMeta(raw)
		}
	}
	for k, v := range doc.Scripts.Env {
		p.ScriptEnv[k] = v
	}
	for k, v := range doc.Conditions {
		p.Conditions[k] = v
	}

	if len(doc.File) > 0 {
		for _, f := range doc.File {
			ft := FileTemplate{
				Source:    path.Clean(filepath.ToSlash(f.Source)),
				Dest:      f.Dest,
				Condition: f.Condition,
				Profile:   p.Name,
				fs:        fs,
				root:      dir,
			}
			if ft.Dest == "" {
				ft.Dest = defaultDest(ft.Source)
			}
			if ok, _ := afero.Exists(fs, ft.SourcePath()); !ok {
				return nil, apperr.Configf("%s: template source %q not found", docPath, f.Source)
			}
			p.Files = append(p.Files, ft)
		}
	} else {
		files, err := discover(fs, dir, TemplatesDir, false)
		if err != nil {
			return nil, err
		}
		for _, src := range files {
			p.Files = append(p.Files, FileTemplate{
				Source:  src,
				Dest:    defaultDest(src),
				Profile: p.Name,
				fs:      fs,
				root:    dir,
			})
		}
	}

	_, onDisk := fs.(*afero.OsFs)
	var scripts []Script
	if len(doc.Script) > 0 {
		for _, s := range doc.Script {
			scripts = append(scripts, Script{Path: path.Clean(filepath.ToSlash(s.Path)), Condition: s.Condition})
		}
	} else {
		found, err := discover(fs, dir, ScriptsDir, true)
		if err != nil {
			return nil, err
		}
		for _, src := range found {
			scripts = append(scripts, Script{Path: src})
		}
	}
	for _, s := range scripts {
		s.Profile = p.Name
		if ok, _ := afero.Exists(fs, joinFS(fs, dir, s.Path)); !ok {
			return nil, apperr.Configf("%s: script %q not found", docPath, s.Path)
		}
		if onDisk {
			s.File = filepath.Join(dir, filepath.FromSlash(s.Path))
		}
		p.Scripts = append(p.Scripts, s)
	}

	if err := checkConditions(p); err != nil {
		return nil, fmt.Errorf("%s: %w", docPath, err)
	}
	return p, nil
}

// checkConditions rejects condition syntax errors at load time so a broken
// profile fails before anything is rendered.
func checkConditions(p *Profile) error {
	exprs := make([]string, 0, len(p.Files)+len(p.Scripts)+len(p.Conditions))
	for _, f := range p.Files {
		exprs = append(exprs, f.Condition)
	}
	for _, s := range p.Scripts {
		exprs = append(exprs, s.Condition)
	}
	names := make([]string, 0, len(p.Conditions))
	for name := range p.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		exprs = append(exprs, p.Conditions[name])
	}
	for _, expr := range exprs {
		if err := CheckCondition(expr); err != nil {
			return err
		}
	}
	return nil
}

// discover lists regular files under dir/sub, sorted, as slash paths
// relative to dir. skipDot drops entries whose name starts with ".".
func discover(fs afero.Fs, dir, sub string, skipDot bool) ([]string, error) {
	base := joinFS(fs, dir, sub)
	if ok, _ := afero.DirExists(fs, base); !ok {
		return nil, nil
	}
	var out []string
	err := afero.Walk(fs, base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if skipDot && strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, apperr.Config(err, "scanning %s", base)
	}
	sort.Strings(out)
	return out, nil
}

// defaultDest strips the templates/ prefix and the template suffix.
func defaultDest(source string) string {
	dest := strings.TrimPrefix(source, TemplatesDir+"/")
	return strings.TrimSuffix(dest, TemplateSuffix)
}

func extendsList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

func decodeMeta(raw any) VarMeta {
	m, _ := raw.(map[string]any)
	var meta VarMeta
	meta.Description, _ = m["description"].(string)
	meta.Required, _ = m["required"].(bool)
	meta.Choices, _ = m["choices"].([]any)
	return meta
}

// joinFS joins path elements for fs. Embedded filesystems need slash
// separated, unrooted paths.
func joinFS(fs afero.Fs, elem ...string) string {
	if _, ok := fs.(afero.FromIOFS); ok {
		return path.Join(elem...)
	}
	return filepath.Join(elem...)
}

// merge layers child over base and returns a new profile. Files and scripts
// are keyed by destination and path; a child entry replaces the inherited
// one in place, new entries are appended.
func merge(base, child *Profile) *Profile {
	if base == nil {
		return clone(child)
	}
	out := clone(base)
	out.Name = child.Name
	out.Dir = child.Dir
	out.Extends = child.Extends
	if child.Description != "" {
		out.Description = child.Description
	}
	if child.Version != "" {
		out.Version = child.Version
	}
	for k, v := range child.Variables {
		out.Variables[k] = v
	}
	for k, v := range child.Meta {
		out.Meta[k] = v
	}
	for k, v := range child.ScriptEnv {
		out.ScriptEnv[k] = v
	}
	for k, v := range child.Conditions {
		out.Conditions[k] = v
	}

	for _, f := range child.Files {
		replaced := false
		for i := range out.Files {
			if out.Files[i].Dest == f.Dest {
				out.Files[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			out.Files = append(out.Files, f)
		}
	}
	for _, s := range child.Scripts {
		replaced := false
		for i := range out.Scripts {
			if out.Scripts[i].Path == s.Path {
				out.Scripts[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			out.Scripts = append(out.Scripts, s)
		}
	}
	return out
}

func clone(p *Profile) *Profile {
	out := *p
	out.Extends = append([]string(nil), p.Extends...)
	out.Files = append([]FileTemplate(nil), p.Files...)
	out.Scripts = append([]Script(nil), p.Scripts...)
	out.Variables = make(map[string]any, len(p.Variables))
	for k, v := range p.Variables {
		out.Variables[k] = v
	}
	out.Meta = make(map[string]VarMeta, len(p.Meta))
	for k, v := range p.Meta {
		out.Meta[k] = v
	}
	out.ScriptEnv = make(map[string]string, len(p.ScriptEnv))
	for k, v := range p.ScriptEnv {
		out.ScriptEnv[k] = v
	}
	out.Conditions = make(map[string]string, len(p.Conditions))
	for k, v := range p.Conditions {
		out.Conditions[k] = v
	}
	return &out
}
