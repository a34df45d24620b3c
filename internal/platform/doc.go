// Package platform wraps terminal detection and interactive yes/no prompts.
// Prompts only read from an interactive terminal; any other input counts as
// "no" so unattended runs never block or overwrite by accident.
package platform
