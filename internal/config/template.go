package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultTemplate is the commented starter file written by `config init`.
const DefaultTemplate = `# adt configuration
# Global:  ~/.config/adt/config.toml
# Project: .adt-config.toml

# Paths used when a command gets no path arguments.
# targets = ["src", "tests"]

[seed]
# Profile used when "adt seed" runs without -p.
# default_profile = "python"

# Directory searched for profiles given by name.
# profiles_dir = "~/projects/project-profiles"

# Variable defaults for seed templates.
[variables]
# author = "Your Name"
# email = "you@example.com"
# license = "MIT"

[settings]
# Ask before running profile post-seed scripts.
# confirm_scripts = true
# Print each tool command before running it.
# echo = true

[audit]
# source = "src"

# Per-tool overrides. A [tools.<name>] table replaces any inherited one.
# [tools.mypy]
# args = ["--strict"]
# [tools.pyright]
# skip = true
`

// WriteDefault writes DefaultTemplate to path. It refuses to replace an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(DefaultTemplate), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// YAML renders the effective configuration for display.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(out), nil
}
