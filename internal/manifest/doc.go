// Package manifest reads the TOML documents adt consumes: the project's
// pyproject.toml and seed profile manifests (profile.toml). Profile
// manifests are validated against an embedded JSON schema before decoding.
package manifest
