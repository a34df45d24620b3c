// Package style holds the terminal styles used for user-facing output.
// lipgloss drops colors automatically when output is not a terminal or
// NO_COLOR is set.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
)

func Bold(s string) string    { return boldStyle.Render(s) }
func Dim(s string) string     { return dimStyle.Render(s) }
func Error(s string) string   { return errorStyle.Render(s) }
func Warn(s string) string    { return warnStyle.Render(s) }
func Success(s string) string { return successStyle.Render(s) }
func Header(s string) string  { return headerStyle.Render(s) }

// Warnf writes a styled "Warning: ..." line.
func Warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Warn("Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf writes a styled "Error: ..." line.
func Errorf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Error("Error: "+fmt.Sprintf(format, args...)))
}

// Status writes one "[ OK ]" or "[MISS]" check line.
func Status(w io.Writer, ok bool, format string, args ...any) {
	tag := Success("[ OK ]")
	if !ok {
		tag = Error("[MISS]")
	}
	fmt.Fprintf(w, "  %s %s\n", tag, fmt.Sprintf(format, args...))
}
