package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/style"
	"github.com/spf13/afero"
)

// ActionKind classifies one seeding step.
type ActionKind string

const (
	ActionCreate        ActionKind = "create"
	ActionOverwrite     ActionKind = "overwrite"
	ActionSkipExists    ActionKind = "skip-exists"
	ActionSkipCondition ActionKind = "skip-condition"
	ActionSkipDeclined  ActionKind = "skip-declined"
	ActionRun           ActionKind = "run"
)

// Action is one planned or performed step.
type Action struct {
	Kind    ActionKind
	Path    string
	Profile string
	DryRun  bool
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCreate, ActionOverwrite, ActionRun:
		if a.DryRun {
			return fmt.Sprintf("would %s %s", a.Kind, a.Path)
		}
		return fmt.Sprintf("%s %s", a.Kind, a.Path)
	case ActionSkipExists:
		return fmt.Sprintf("skip %s (exists)", a.Path)
	case ActionSkipCondition:
		return fmt.Sprintf("skip %s (condition not met)", a.Path)
	case ActionSkipDeclined:
		return fmt.Sprintf("skip %s (declined)", a.Path)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.Path)
	}
}

// Report lists every action of a seeding run in order.
type Report struct {
	Actions []Action
	DryRun  bool
	// Results holds the script runs.
	Results *runner.Aggregate
}

// Count returns how many actions have the given kind.
func (r *Report) Count(kind ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Options control overwrite, confirmation and dry-run behavior.
type Options struct {
	Overwrite bool
	// Yes answers every confirmation with yes.
	Yes    bool
	DryRun bool
	// ConfirmScripts asks before each post-render script.
	ConfirmScripts bool
	// Confirm asks the user a yes/no question. nil means "no".
	Confirm func(prompt string) bool
	// Out receives one line per action. nil discards.
	Out io.Writer
}

// Seeder renders an effective profile into a project directory.
type Seeder struct {
	Fs       afero.Fs
	Dir      string
	Runner   runner.Runner
	Renderer *Renderer
	Options  Options
}

type plannedFile struct {
	file    FileTemplate
	dest    string
	rel     string
	content []byte
	mode    os.FileMode
	// skip is set when the file's condition is false.
	skip bool
}

// Seed applies p with vars as template data. Every condition is evaluated
// and every template rendered before the first file is written, so a
// broken template leaves the project untouched.
func (s *Seeder) Seed(ctx context.Context, p *EffectiveProfile, data map[string]any) (*Report, error) {
	log := ctxlog.FromContext(ctx)
	fs := s.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	out := s.Options.Out
	if out == nil {
		out = io.Discard
	}
	renderer := s.Renderer
	if renderer == nil {
		renderer = &Renderer{Fs: fs, ProjectDir: s.Dir}
	}

	report := &Report{DryRun: s.Options.DryRun, Results: &runner.Aggregate{}}
	record := func(a Action) {
		a.DryRun = s.Options.DryRun
		report.Actions = append(report.Actions, a)
		fmt.Fprintf(out, "  %s\n", a)
	}

	eval := NewEvaluator(Variables(data), p.Conditions, fs, s.Dir, renderer.Project)

	var planned []plannedFile
	for _, f := range p.Files {
		ok, err := eval.Eval(f.Condition)
		if err != nil {
			return nil, fmt.Errorf("file %s from profile %s: %w", f.Dest, f.Profile, err)
		}
		if !ok {
			planned = append(planned, plannedFile{file: f, rel: f.Dest, skip: true})
			continue
		}
		dest, rel, err := s.destination(f.Dest)
		if err != nil {
			return nil, err
		}
		content, mode, err := s.produce(renderer, f, data)
		if err != nil {
			return nil, err
		}
		planned = append(planned, plannedFile{file: f, dest: dest, rel: rel, content: content, mode: mode})
	}

	for _, pf := range planned {
		if pf.skip {
			record(Action{Kind: ActionSkipCondition, Path: pf.rel, Profile: pf.file.Profile})
			continue
		}
		exists, err := afero.Exists(fs, pf.dest)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", pf.rel, err)
		}
		kind := ActionCreate
		if exists {
			if !s.Options.Overwrite {
				record(Action{Kind: ActionSkipExists, Path: pf.rel, Profile: pf.file.Profile})
				continue
			}
			if !s.Options.Yes && !s.Options.DryRun && !s.confirm(fmt.Sprintf("Overwrite %s?", pf.rel)) {
				record(Action{Kind: ActionSkipDeclined, Path: pf.rel, Profile: pf.file.Profile})
				continue
			}
			kind = ActionOverwrite
		}
		if !s.Options.DryRun {
			if err := fs.MkdirAll(filepath.Dir(pf.dest), 0755); err != nil {
				return nil, fmt.Errorf("creating directory for %s: %w", pf.rel, err)
			}
			if err := afero.WriteFile(fs, pf.dest, pf.content, pf.mode); err != nil {
				return nil, fmt.Errorf("writing %s: %w", pf.rel, err)
			}
			log.Debug("wrote file", "path", pf.rel, "profile", pf.file.Profile)
		}
		record(Action{Kind: kind, Path: pf.rel, Profile: pf.file.Profile})
	}

	for _, sc := range p.Scripts {
		ok, err := eval.Eval(sc.Condition)
		if err != nil {
			return nil, fmt.Errorf("script %s from profile %s: %w", sc.Path, sc.Profile, err)
		}
		if !ok {
			record(Action{Kind: ActionSkipCondition, Path: sc.Path, Profile: sc.Profile})
			continue
		}
		if s.Options.DryRun {
			record(Action{Kind: ActionRun, Path: sc.Path, Profile: sc.Profile})
			continue
		}
		if s.Options.ConfirmScripts && !s.Options.Yes && !s.confirm(fmt.Sprintf("Run script %s?", sc.Path)) {
			record(Action{Kind: ActionSkipDeclined, Path: sc.Path, Profile: sc.Profile})
			continue
		}
		if sc.File == "" {
			return nil, apperr.Configf("script %s of profile %s is not on disk and cannot be run", sc.Path, sc.Profile)
		}
		if s.Runner == nil {
			return nil, fmt.Errorf("running script %s: no runner configured", sc.Path)
		}
		record(Action{Kind: ActionRun, Path: sc.Path, Profile: sc.Profile})
		res, err := s.Runner.Run(ctx, runner.Invocation{
			Tool:    sc.Path,
			Command: "sh",
			Args:    []string{sc.File},
			Dir:     s.Dir,
			Env:     runner.EnvList(p.ScriptEnv),
		})
		if res != nil {
			report.Results.Add(res)
		}
		if err != nil {
			return report, err
		}
		if !res.Success() {
			report.Results.Failed = sc.Path
			style.Warnf(out, "script %s exited with status %d", sc.Path, res.ExitCode)
			return report, nil
		}
	}
	return report, nil
}

// destination resolves dest inside the project directory.
func (s *Seeder) destination(dest string) (abs, rel string, err error) {
	if dest == "" {
		return "", "", apperr.Configf("file entry without destination")
	}
	if filepath.IsAbs(dest) {
		return "", "", apperr.Configf("destination %s must be relative to the project", dest)
	}
	rel = filepath.Clean(filepath.FromSlash(dest))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", apperr.Configf("destination %s escapes the project directory", dest)
	}
	return filepath.Join(s.Dir, rel), filepath.ToSlash(rel), nil
}

// produce reads a file's source and renders it when it is a template.
// Copied files keep their permission bits.
func (s *Seeder) produce(r *Renderer, f FileTemplate, data map[string]any) ([]byte, os.FileMode, error) {
	src := f.SourcePath()
	raw, err := afero.ReadFile(f.fs, src)
	if err != nil {
		return nil, 0, apperr.Config(err, "reading template %s of profile %s", f.Source, f.Profile)
	}
	mode := os.FileMode(0644)
	if info, err := f.fs.Stat(src); err == nil && info.Mode().Perm()&0111 != 0 {
		mode = 0755
	}
	if !f.IsTemplate() {
		return raw, mode, nil
	}
	rendered, err := r.Render(f.Profile+"/"+f.Source, string(raw), data)
	if err != nil {
		return nil, 0, apperr.Config(err, "profile %s", f.Profile)
	}
	return []byte(rendered), mode, nil
}

func (s *Seeder) confirm(prompt string) bool {
	if s.Options.Confirm == nil {
		return false
	}
	return s.Options.Confirm(prompt)
}
