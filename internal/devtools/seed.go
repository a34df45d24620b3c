package devtools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/command"
	"github.com/adt-dev/adt/internal/config"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/adt-dev/adt/internal/manifest"
	"github.com/adt-dev/adt/internal/platform"
	"github.com/adt-dev/adt/internal/runner"
	"github.com/adt-dev/adt/internal/seed"
	"github.com/adt-dev/adt/internal/style"
	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"
)

// environ is replaced in tests.
var environ = os.Environ

var seedCommand = command.Command{
	Name:  "seed",
	Short: "Add configuration files to the project from a profile",
	Long: `Renders the files of one or more profiles into the project directory.

Profiles are looked up in the configured profiles directory; a value with a
path separator or starting with "." or "~" is a profile directory. Several
profiles separated by commas are layered left to right. Without a profile,
seed.default_profile is used, then the built-in "default" profile.

Existing files are kept unless --overwrite is given.`,
	Flags: func(fs *pflag.FlagSet) {
		fs.StringP("profile", "p", "", "profile name(s), comma separated")
		fs.StringP("source", "s", "", "use a profile directory directly")
		fs.StringArrayP("var", "v", nil, "set a variable (name=value, repeatable)")
		fs.BoolP("overwrite", "o", false, "overwrite existing files (asks first)")
		fs.BoolP("yes", "y", false, "answer yes to every confirmation")
		fs.BoolP("dry-run", "n", false, "show what would be done without writing")
		fs.BoolP("list", "l", false, "list available profiles")
		fs.StringP("info", "i", "", "show details of a profile")
	},
	Handler: runSeed,
}

func loader(inv *command.Invocation) *seed.Loader {
	return &seed.Loader{
		Fs:          filesystem(inv),
		ProfilesDir: settings(inv).Seed.ProfilesDir,
		WorkDir:     inv.Dir,
	}
}

// loadManifest reads pyproject.toml from the project, nil when absent.
func loadManifest(inv *command.Invocation) (*manifest.Project, error) {
	m, err := manifest.LoadProject(filesystem(inv), inv.Dir)
	if err != nil {
		return nil, apperr.Config(err, "loading project manifest")
	}
	return m, nil
}

// profileRefs turns --profile/--source into loader references.
func profileRefs(inv *command.Invocation) ([]string, error) {
	profile, _ := inv.Flags.GetString("profile")
	source, _ := inv.Flags.GetString("source")
	if profile != "" && source != "" {
		return nil, apperr.Usagef("--profile and --source cannot be combined")
	}
	if source != "" {
		if !filepath.IsAbs(source) && !strings.HasPrefix(source, "~") {
			source = filepath.Join(inv.Dir, source)
		}
		return []string{source}, nil
	}
	if profile == "" {
		profile = settings(inv).Seed.DefaultProfile
	}
	var refs []string
	for _, name := range strings.Split(profile, ",") {
		if name = strings.TrimSpace(name); name != "" {
			refs = append(refs, name)
		}
	}
	return refs, nil
}

func runSeed(ctx context.Context, inv *command.Invocation) (*runner.Aggregate, error) {
	if len(inv.Args) > 0 {
		return nil, apperr.Usagef("seed takes no arguments, use --profile %s", inv.Args[0])
	}
	if list, _ := inv.Flags.GetBool("list"); list {
		return nil, listProfiles(inv)
	}
	if info, _ := inv.Flags.GetString("info"); info != "" {
		return nil, showProfile(ctx, inv, info)
	}

	pairs, _ := inv.Flags.GetStringArray("var")
	cliVars, err := seed.ParseCLIVars(pairs)
	if err != nil {
		return nil, err
	}
	refs, err := profileRefs(inv)
	if err != nil {
		return nil, err
	}
	overwrite, _ := inv.Flags.GetBool("overwrite")
	yes, _ := inv.Flags.GetBool("yes")
	dryRun, _ := inv.Flags.GetBool("dry-run")

	heading(inv, "Seeding project...")
	if len(refs) == 0 {
		fmt.Fprintln(stdout(inv), style.Dim("No profile configured, using the built-in profile"))
	}

	p, err := loader(inv).Load(ctx, refs...)
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(inv)
	if err != nil {
		return nil, err
	}

	cfg := settings(inv)
	env := environ()
	vars := seed.ResolveVariables(p, seed.Sources{
		Fs:         filesystem(inv),
		ProjectDir: inv.Dir,
		Global:     cfg.LayerVariables(config.LayerGlobal),
		Manifest:   m,
		Project:    cfg.LayerVariables(config.LayerProject),
		Environ:    env,
		CLI:        cliVars,
	})
	if err := p.CheckVariables(vars); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("resolved seed variables", "profiles", p.Chain, "names", vars.Names())

	fmt.Fprintf(stdout(inv), "\nProfile: %s\n", style.Bold(strings.Join(p.Chain, " -> ")))
	s := &seed.Seeder{
		Fs:       filesystem(inv),
		Dir:      inv.Dir,
		Runner:   inv.Runner,
		Renderer: &seed.Renderer{Fs: filesystem(inv), ProjectDir: inv.Dir, Project: m},
		Options: seed.Options{
			Overwrite:      overwrite,
			Yes:            yes,
			DryRun:         dryRun,
			ConfirmScripts: cfg.Settings.ConfirmScripts,
			Confirm:        platform.NewPrompter(inv.Stdin, stdout(inv)).Confirm,
			Out:            stdout(inv),
		},
	}
	report, err := s.Seed(ctx, p, seed.Context(vars, m, env, inv.Version, p.Chain))
	if err != nil {
		return nil, err
	}
	if len(report.Actions) == 0 {
		fmt.Fprintln(stdout(inv), style.Dim("  No template files found"))
	}

	if dryRun {
		fmt.Fprintln(stdout(inv), style.Dim("\nDry run - no files were modified"))
	} else if report.Results.Success() {
		fmt.Fprintln(stdout(inv), style.Bold("\nSeeding complete!"))
	}
	return report.Results, nil
}

func listProfiles(inv *command.Invocation) error {
	summaries, err := loader(inv).List()
	if err != nil {
		return err
	}
	w := stdout(inv)
	heading(inv, "Available profiles:")
	fmt.Fprintln(w)
	width := 0
	for _, s := range summaries {
		width = max(width, len(s.Name))
	}
	for _, s := range summaries {
		desc := s.Description
		if desc == "" {
			desc = style.Dim("No description")
		}
		if s.Builtin {
			desc += style.Dim(" (built-in)")
		}
		fmt.Fprintf(w, "  %-*s   %s\n", width, s.Name, desc)
	}
	return nil
}

func showProfile(ctx context.Context, inv *command.Invocation, ref string) error {
	p, err := loader(inv).Load(ctx, ref)
	if err != nil {
		return err
	}
	w := stdout(inv)
	fmt.Fprintf(w, "Profile: %s\n", style.Bold(p.Name))
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(w, "Version: %s\n", p.Version)
	fmt.Fprintf(w, "Directory: %s\n", p.Dir)
	if len(p.Chain) > 1 {
		fmt.Fprintf(w, "Inherits: %s\n", strings.Join(p.Chain[:len(p.Chain)-1], " -> "))
	}

	if len(p.Variables) > 0 {
		fmt.Fprintf(w, "\n%s\n", style.Header("Variables:"))
		if err := writeYAML(w, p.Variables); err != nil {
			return err
		}
	}
	if len(p.Meta) > 0 {
		names := make([]string, 0, len(p.Meta))
		for name := range p.Meta {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\n%s\n", style.Header("Variable notes:"))
		for _, name := range names {
			meta := p.Meta[name]
			line := fmt.Sprintf("  %s", name)
			if meta.Description != "" {
				line += ": " + meta.Description
			}
			if meta.Required {
				line += style.Warn(" (required)")
			}
			if len(meta.Choices) > 0 {
				line += style.Dim(fmt.Sprintf(" %v", meta.Choices))
			}
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintf(w, "\n%s\n", style.Header("Files:"))
	if len(p.Files) == 0 {
		fmt.Fprintln(w, style.Dim("  (none)"))
	}
	for _, f := range p.Files {
		line := fmt.Sprintf("  %s <- %s", f.Dest, f.Source)
		if f.Condition != "" {
			line += style.Dim(fmt.Sprintf(" if %s", f.Condition))
		}
		if f.Profile != p.Name {
			line += style.Dim(fmt.Sprintf(" [%s]", f.Profile))
		}
		fmt.Fprintln(w, line)
	}
	if len(p.Scripts) > 0 {
		fmt.Fprintf(w, "\n%s\n", style.Header("Scripts:"))
		for _, s := range p.Scripts {
			fmt.Fprintf(w, "  %s\n", s.Path)
		}
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding variables: %w", err)
	}
	return enc.Close()
}
