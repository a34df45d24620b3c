// Package config resolves the effective adt configuration from built-in
// defaults, the global config file (~/.config/adt/config.toml), the project
// file (.adt-config.toml), ADT_* environment variables and CLI overrides.
// Later layers win key by key; [tools.<name>] tables replace as a whole.
package config
