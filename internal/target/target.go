// Package target resolves the list of paths a command operates on.
package target

import (
	"path/filepath"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/spf13/afero"
)

// Set is an ordered, non-empty list of existing paths.
type Set []string

// Strings returns the paths as a plain slice, for argv assembly.
func (s Set) Strings() []string { return []string(s) }

// Resolver checks paths relative to a project directory.
type Resolver struct {
	Fs  afero.Fs
	Dir string
}

// Resolve returns argPaths when given, failing on the first path that does
// not exist. With no argPaths it returns the defaults that exist, failing
// when none do. Paths are returned as given, not joined with Dir.
func (r *Resolver) Resolve(argPaths, defaults []string) (Set, error) {
	if len(argPaths) > 0 {
		for _, p := range argPaths {
			if !r.exists(p) {
				return nil, apperr.Usagef("path does not exist: %s", p)
			}
		}
		return Set(append([]string(nil), argPaths...)), nil
	}

	var out Set
	for _, p := range defaults {
		if r.exists(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, apperr.Usagef("none of the default paths exist (%v); pass paths explicitly", defaults)
	}
	return out, nil
}

func (r *Resolver) exists(p string) bool {
	if !filepath.IsAbs(p) && r.Dir != "" {
		p = filepath.Join(r.Dir, p)
	}
	ok, err := afero.Exists(r.Fs, p)
	return err == nil && ok
}
