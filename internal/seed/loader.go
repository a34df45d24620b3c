package seed

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/spf13/afero"
)

//go:embed all:builtin
var builtinFS embed.FS

// BuiltinProfile is used when no profile is requested or configured.
const BuiltinProfile = "default"

// Loader finds profiles by name or path and resolves their inheritance.
type Loader struct {
	// Fs holds on-disk profiles. Defaults to the OS filesystem.
	Fs afero.Fs
	// ProfilesDir is searched for profiles given by name.
	ProfilesDir string
	// WorkDir anchors relative profile paths. Defaults to ".".
	WorkDir string
}

// Summary describes a profile for listings.
type Summary struct {
	Name        string
	Description string
	Dir         string
	Builtin     bool
}

func (l *Loader) fs() afero.Fs {
	if l.Fs == nil {
		return afero.NewOsFs()
	}
	return l.Fs
}

func builtin() afero.Fs {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return afero.FromIOFS{FS: sub}
}

type location struct {
	fs  afero.Fs
	dir string
	// key identifies the profile for cycle detection.
	key string
}

// isPathRef reports whether ref names a directory rather than a profile.
func isPathRef(ref string) bool {
	return strings.ContainsRune(ref, '/') || strings.ContainsRune(ref, filepath.Separator) ||
		strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "~")
}

// locate resolves a profile reference. Path references are relative to
// from (the referencing profile's directory) or WorkDir. Names are looked up
// in ProfilesDir, then next to the referencing profile, then among the
// built-in profiles.
func (l *Loader) locate(ref, from string) (location, error) {
	osfs := l.fs()
	if isPathRef(ref) {
		dir := expandHome(ref)
		if !filepath.IsAbs(dir) {
			base := from
			if base == "" {
				base = l.WorkDir
			}
			if base == "" {
				base = "."
			}
			dir = filepath.Join(base, dir)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		return location{fs: osfs, dir: dir, key: dir}, nil
	}

	var candidates []string
	if l.ProfilesDir != "" {
		candidates = append(candidates, filepath.Join(l.ProfilesDir, ref))
	}
	if from != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), ref))
	}
	for _, dir := range candidates {
		if ok, _ := afero.DirExists(osfs, dir); ok {
			if abs, err := filepath.Abs(dir); err == nil {
				dir = abs
			}
			return location{fs: osfs, dir: dir, key: dir}, nil
		}
	}

	if ok, _ := afero.DirExists(builtin(), ref); ok {
		return location{fs: builtin(), dir: ref, key: "builtin:" + ref}, nil
	}
	return location{}, apperr.Configf("profile %q not found (searched %s)", ref, strings.Join(candidates, ", "))
}

// Load resolves each reference with its inheritance chain and layers the
// results left to right into one effective profile. Inheritance cycles are
// configuration errors.
func (l *Loader) Load(ctx context.Context, refs ...string) (*EffectiveProfile, error) {
	if len(refs) == 0 {
		refs = []string{BuiltinProfile}
	}

	var (
		merged *Profile
		chain  []string
	)
	for _, ref := range refs {
		p, err := l.resolve(ctx, ref, "", nil, &chain)
		if err != nil {
			return nil, err
		}
		merged = merge(merged, p)
	}
	return &EffectiveProfile{Profile: *merged, Chain: chain}, nil
}

func (l *Loader) resolve(ctx context.Context, ref, from string, stack []string, chain *[]string) (*Profile, error) {
	loc, err := l.locate(ref, from)
	if err != nil {
		return nil, err
	}
	for i, key := range stack {
		if key == loc.key {
			names := make([]string, 0, len(stack)-i+1)
			for _, k := range stack[i:] {
				names = append(names, displayKey(k))
			}
			names = append(names, displayKey(loc.key))
			return nil, apperr.Configf("profile inheritance cycle: %s", strings.Join(names, " -> "))
		}
	}

	own, err := readProfile(loc.fs, loc.dir)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("loaded profile", "name", own.Name, "dir", loc.dir, "extends", own.Extends)

	stack = append(stack, loc.key)
	var merged *Profile
	for _, parent := range own.Extends {
		pp, err := l.resolve(ctx, parent, parentAnchor(loc), stack, chain)
		if err != nil {
			return nil, err
		}
		merged = merge(merged, pp)
	}
	merged = merge(merged, own)

	if !slices.Contains(*chain, own.Name) {
		*chain = append(*chain, own.Name)
	}
	return merged, nil
}

// parentAnchor returns the directory parent references resolve against.
// Embedded profiles only reference other embedded profiles by name.
func parentAnchor(loc location) string {
	if strings.HasPrefix(loc.key, "builtin:") {
		return ""
	}
	return loc.dir
}

func displayKey(key string) string {
	if name, ok := strings.CutPrefix(key, "builtin:"); ok {
		return name
	}
	return filepath.Base(key)
}

// List returns the profiles found in ProfilesDir followed by the built-in
// ones, sorted by name within each group.
func (l *Loader) List() ([]Summary, error) {
	var out []Summary
	if l.ProfilesDir != "" {
		entries, err := afero.ReadDir(l.fs(), l.ProfilesDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, apperr.Config(err, "reading profiles directory %s", l.ProfilesDir)
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			dir := filepath.Join(l.ProfilesDir, e.Name())
			s := Summary{Name: e.Name(), Dir: dir}
			if p, err := readProfile(l.fs(), dir); err == nil {
				s.Description = p.Description
			}
			out = append(out, s)
		}
	}

	entries, err := afero.ReadDir(builtin(), ".")
	if err != nil {
		return nil, apperr.Config(err, "reading built-in profiles")
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s := Summary{Name: e.Name(), Dir: "builtin:" + e.Name(), Builtin: true}
		if p, err := readProfile(builtin(), e.Name()); err == nil {
			s.Description = p.Description
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Builtin != out[j].Builtin {
			return !out[i].Builtin
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
