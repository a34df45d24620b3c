// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is embedded into the binary; edit it to rename the tool,
// its config locations, or its environment variable prefix.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName       string `yaml:"cli_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	ConfigDir     string `yaml:"config_dir"`
	ProjectConfig string `yaml:"project_config"`
	EnvPrefix     string `yaml:"env_prefix"`
	GoModule      string `yaml:"go_module"`
	GitHubRepo    string `yaml:"github_repo"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:       "adt",
			DisplayName:   "ADT",
			Description:   "Curated front-end for Python code-quality tools",
			ConfigDir:     "adt",
			ProjectConfig: ".adt-config.toml",
			EnvPrefix:     "ADT",
			GoModule:      "github.com/adt-dev/adt",
			GitHubRepo:    "adt-dev/adt",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "adt").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "ADT").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// ConfigDir returns the directory name under the user config root (e.g., "adt").
func ConfigDir() string { load(); return defaults.ConfigDir }

// ProjectConfig returns the project-level config file name (e.g., ".adt-config.toml").
func ProjectConfig() string { load(); return defaults.ProjectConfig }

// EnvPrefix returns the environment variable prefix (e.g., "ADT").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path.
func GoModule() string { load(); return defaults.GoModule }

// GitHubRepo returns the "owner/repo" string used for release checks.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("config_dir") → "ADT_CONFIG_DIR".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
