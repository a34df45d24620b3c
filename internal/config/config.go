package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/branding"
	"github.com/adt-dev/adt/internal/ctxlog"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "toml"
)

// Layer names, lowest priority first.
const (
	LayerGlobal  = "global"
	LayerProject = "project"
)

// wholeSections lists sections whose children replace as whole sub-objects
// rather than merging key by key.
var wholeSections = map[string]bool{
	"tools": true,
}

// Dir returns the global config directory. ADT_CONFIG_DIR wins, then
// $XDG_CONFIG_HOME/adt, then ~/.config/adt.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("CONFIG_DIR")); v != "" {
		return v
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, branding.ConfigDir())
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", branding.ConfigDir())
	}
	return filepath.Join(home, ".config", branding.ConfigDir())
}

// GlobalFile returns the path of the global config file.
func GlobalFile() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// ProjectFile returns the path of the project config file in dir.
func ProjectFile(dir string) string {
	return filepath.Join(dir, branding.ProjectConfig())
}

// DefaultProfilesDir returns the profile directory used when seed.profiles_dir is unset.
func DefaultProfilesDir() string {
	return filepath.Join(Dir(), "profiles")
}

// ToolConfig customizes one external tool.
type ToolConfig struct {
	Command string   `mapstructure:"command" yaml:"command,omitempty"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
	Skip    bool     `mapstructure:"skip" yaml:"skip,omitempty"`
}

// SeedConfig holds the [seed] section.
type SeedConfig struct {
	DefaultProfile string `mapstructure:"default_profile" yaml:"default_profile"`
	ProfilesDir    string `mapstructure:"profiles_dir" yaml:"profiles_dir"`
}

// Settings holds the [settings] section.
type Settings struct {
	ConfirmScripts bool `mapstructure:"confirm_scripts" yaml:"confirm_scripts"`
	Echo           bool `mapstructure:"echo" yaml:"echo"`
}

// AuditConfig holds the [audit] section.
type AuditConfig struct {
	Source string `mapstructure:"source" yaml:"source"`
}

// Layer is one config file that contributed to the effective config.
type Layer struct {
	Name string
	Path string
	Data map[string]any
}

// Config is the effective configuration for one invocation.
type Config struct {
	Targets   []string              `mapstructure:"targets" yaml:"targets"`
	Seed      SeedConfig            `mapstructure:"seed" yaml:"seed"`
	Settings  Settings              `mapstructure:"settings" yaml:"settings"`
	Audit     AuditConfig           `mapstructure:"audit" yaml:"audit"`
	Variables map[string]any        `mapstructure:"variables" yaml:"variables,omitempty"`
	Tools     map[string]ToolConfig `mapstructure:"tools" yaml:"tools,omitempty"`

	// ProjectDir is the directory the project config was looked up in.
	ProjectDir string `mapstructure:"-" yaml:"-"`
	// Layers lists the files that were read, lowest priority first.
	Layers []Layer `mapstructure:"-" yaml:"-"`
}

// Tool returns the configuration for the named tool (zero value if unset).
func (c *Config) Tool(name string) ToolConfig {
	if c.Tools == nil {
		return ToolConfig{}
	}
	return c.Tools[strings.ToLower(name)]
}

// LayerVariables returns the [variables] table of the named layer, or nil.
func (c *Config) LayerVariables(name string) map[string]any {
	for _, l := range c.Layers {
		if l.Name != name {
			continue
		}
		if vars, ok := l.Data["variables"].(map[string]any); ok {
			return vars
		}
	}
	return nil
}

// Options controls Resolve.
type Options struct {
	// ProjectDir is searched for the project config file. Defaults to ".".
	ProjectDir string
	// GlobalFile overrides the global config path (tests, --config).
	GlobalFile string
	// Overrides are CLI-supplied values keyed by dotted path ("seed.default_profile").
	Overrides map[string]any
	// Fs is the filesystem to read from. Defaults to the OS filesystem.
	Fs afero.Fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("targets", []string{"src", "tests"})
	v.SetDefault("seed.default_profile", "")
	v.SetDefault("seed.profiles_dir", DefaultProfilesDir())
	v.SetDefault("settings.confirm_scripts", true)
	v.SetDefault("settings.echo", true)
	v.SetDefault("audit.source", "src")
}

// Resolve merges built-in defaults, the global config file, the project
// config file, ADT_* environment variables and CLI overrides, in increasing
// priority. Missing files are skipped; malformed files are configuration
// errors naming the file and position.
func Resolve(ctx context.Context, opts Options) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	globalPath := opts.GlobalFile
	if globalPath == "" {
		globalPath = GlobalFile()
	}

	cfg := &Config{ProjectDir: projectDir}
	merged := map[string]any{}

	for _, l := range []Layer{
		{Name: LayerGlobal, Path: globalPath},
		{Name: LayerProject, Path: ProjectFile(projectDir)},
	} {
		data, err := readLayer(fs, l.Path)
		if err != nil {
			return nil, err
		}
		if data == nil {
			logger.Debug("config file not found", "layer", l.Name, "path", l.Path)
			continue
		}
		logger.Debug("loaded config file", "layer", l.Name, "path", l.Path)
		l.Data = data
		cfg.Layers = append(cfg.Layers, l)
		mergeInto(merged, data, "")
	}

	v := viper.New()
	setDefaults(v)
	if err := v.MergeConfigMap(merged); err != nil {
		return nil, apperr.Config(err, "merging configuration")
	}
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	keys := make([]string, 0, len(opts.Overrides))
	for k := range opts.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Set(k, opts.Overrides[k])
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.Config(err, "decoding configuration")
	}

	// viper folds keys to lower case; variable names keep their spelling.
	cfg.Variables = map[string]any{}
	if vars, ok := merged["variables"].(map[string]any); ok {
		for k, val := range vars {
			cfg.Variables[k] = val
		}
	}
	for k, val := range opts.Overrides {
		if name, ok := strings.CutPrefix(k, "variables."); ok {
			cfg.Variables[name] = val
		}
	}

	cfg.Seed.ProfilesDir = profilesDir(cfg, opts.Overrides)
	return cfg, nil
}

// profilesDir expands "~" in seed.profiles_dir. A relative path taken from
// a config file is relative to that file's directory; one from the
// environment or the command line stays relative to the working directory.
func profilesDir(cfg *Config, overrides map[string]any) string {
	dir := expandHome(cfg.Seed.ProfilesDir)
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	if _, ok := overrides["seed.profiles_dir"]; ok {
		return dir
	}
	if _, ok := os.LookupEnv(branding.EnvPrefix() + "_SEED_PROFILES_DIR"); ok {
		return dir
	}
	for i := len(cfg.Layers) - 1; i >= 0; i-- {
		l := cfg.Layers[i]
		seed, _ := l.Data["seed"].(map[string]any)
		if _, ok := seed["profiles_dir"].(string); ok {
			return filepath.Join(filepath.Dir(l.Path), dir)
		}
	}
	return dir
}

// readLayer decodes one TOML file. A missing file returns (nil, nil).
func readLayer(fs afero.Fs, path string) (map[string]any, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Config(err, "reading %s", path)
	}

	data := map[string]any{}
	if err := toml.Unmarshal(raw, &data); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, apperr.Configf("%s:%d:%d: %s", path, row, col, derr.Error())
		}
		return nil, apperr.Config(err, "parsing %s", path)
	}
	return data, nil
}

// mergeInto copies src onto dst key by key. Tables recurse unless their
// parent is listed in wholeSections, in which case they replace outright.
func mergeInto(dst, src map[string]any, path string) {
	for k, val := range src {
		sub, srcIsMap := val.(map[string]any)
		existing, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap && !wholeSections[path] {
			mergeInto(existing, sub, joinKey(path, k))
			continue
		}
		if srcIsMap {
			cp := map[string]any{}
			mergeInto(cp, sub, joinKey(path, k))
			dst[k] = cp
			continue
		}
		dst[k] = val
	}
}

func joinKey(path, k string) string {
	if path == "" {
		return k
	}
	return path + "." + k
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
