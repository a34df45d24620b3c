package platform

import "golang.org/x/term"

// fdReader is implemented by *os.File.
type fdReader interface {
	Fd() uintptr
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(fdReader)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
