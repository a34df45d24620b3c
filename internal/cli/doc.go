// Package cli builds the cobra command tree for adt. Global flags are parsed
// before the subcommand name; every registered devtools command becomes a
// cobra subcommand whose RunE dispatches through the command registry. The
// version and config commands are handled here directly.
package cli
