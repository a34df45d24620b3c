package manifest

// File names.
const (
	ProjectFile = "pyproject.toml"
	ProfileFile = "profile.toml"
)

// ProjectTable is the subset of a [project] or [tool.poetry] table adt uses.
type ProjectTable struct {
	Name           string `toml:"name"`
	Version        string `toml:"version"`
	Description    string `toml:"description"`
	RequiresPython string `toml:"requires-python"`
}

// Project is a parsed pyproject.toml.
type Project struct {
	Path string `toml:"-"`

	// Project is the PEP 621 [project] table.
	Project ProjectTable `toml:"project"`
	Tool    struct {
		Poetry struct {
			ProjectTable
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
		ADT struct {
			Variables map[string]any `toml:"variables"`
		} `toml:"adt"`
	} `toml:"tool"`

	// Raw holds the full document for dotted lookups.
	Raw map[string]any `toml:"-"`
}
