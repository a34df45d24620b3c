// Package bumper computes and writes new project versions in pyproject.toml.
package bumper

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/spf13/afero"
)

// Rules computed in-process. Any other rule is delegated to "poetry version".
const (
	RuleDaily = "daily"
	RulePatch = "patch"
	RuleMinor = "minor"
	RuleMajor = "major"
)

// Builtin reports whether rule is handled without poetry.
func Builtin(rule string) bool {
	switch rule {
	case RuleDaily, RulePatch, RuleMinor, RuleMajor:
		return true
	}
	return false
}

// Next returns the version following current under rule. now is used by the
// daily rule, which produces YYYY.MM.DD.N with N restarting at 1 each day.
func Next(current, rule string, now time.Time) (string, error) {
	switch rule {
	case RuleDaily:
		return nextDaily(current, now), nil
	case RulePatch, RuleMinor, RuleMajor:
		prefix := ""
		if strings.HasPrefix(current, "v") {
			prefix = "v"
		}
		v, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
		if err != nil {
			return "", fmt.Errorf("parsing version %q: %w", current, err)
		}
		var next semver.Version
		switch rule {
		case RulePatch:
			next = v.IncPatch()
		case RuleMinor:
			next = v.IncMinor()
		default:
			next = v.IncMajor()
		}
		return prefix + next.String(), nil
	default:
		return "", fmt.Errorf("rule %q is not a built-in bump rule", rule)
	}
}

func nextDaily(current string, now time.Time) string {
	today := now.UTC().Format("2006.01.02")
	serial := 1
	if i := strings.LastIndex(current, "."); i > 0 {
		if n, err := strconv.Atoi(current[i+1:]); err == nil && current[:i] == today {
			serial = n + 1
		}
	}
	return fmt.Sprintf("%s.%d", today, serial)
}

var versionLine = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"']*)(["'])(.*)$`)

// SetVersion rewrites the version key of the given table ("project" or
// "tool.poetry") in pyproject.toml content, leaving every other byte as is.
func SetVersion(data []byte, table, version string) ([]byte, error) {
	header := "[" + table + "]"
	lines := bytes.Split(data, []byte("\n"))
	inTable := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(string(line))
		if strings.HasPrefix(trimmed, "[") {
			inTable = trimmed == header
			continue
		}
		if !inTable {
			continue
		}
		if m := versionLine.FindSubmatch(line); m != nil {
			lines[i] = []byte(string(m[1]) + string(m[2]) + version + string(m[4]) + string(m[5]))
			return bytes.Join(lines, []byte("\n")), nil
		}
	}
	return nil, fmt.Errorf("no version key found in [%s]", table)
}

// Bump applies a built-in rule to dir/pyproject.toml and returns the old and
// new versions.
func Bump(fs afero.Fs, dir, rule string, now time.Time) (oldVersion, newVersion string, err error) {
	path := filepath.Join(dir, manifest.ProjectFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := manifest.ParseProjectBytes(data, path)
	if err != nil {
		return "", "", err
	}
	table := p.VersionTable()
	if table == "" {
		return "", "", fmt.Errorf("%s declares no version", path)
	}

	oldVersion = p.Version()
	newVersion, err = Next(oldVersion, rule, now)
	if err != nil {
		return "", "", err
	}
	out, err := SetVersion(data, table, newVersion)
	if err != nil {
		return "", "", fmt.Errorf("updating %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, out, 0644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", path, err)
	}
	return oldVersion, newVersion, nil
}

// Current reads the version from dir/pyproject.toml.
func Current(fs afero.Fs, dir string) (string, error) {
	p, err := manifest.LoadProject(fs, dir)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("no %s in %s", manifest.ProjectFile, dir)
	}
	if p.Version() == "" {
		return "", fmt.Errorf("%s declares no version", p.Path)
	}
	return p.Version(), nil
}
