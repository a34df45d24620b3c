// Package makefile extracts documented targets from a Makefile. A target is
// documented when the line directly above it is a "## description" comment.
package makefile

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	descRe   = regexp.MustCompile(`^## (.*)`)
	targetRe = regexp.MustCompile(`^(\S*?):`)
)

// Target is one documented make target.
type Target struct {
	Name        string
	Description string
}

// Parse returns the documented targets in file order.
func Parse(content string) []Target {
	var (
		targets     []Target
		description string
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, ".PHONY:") {
			continue
		}
		if m := descRe.FindStringSubmatch(line); m != nil {
			description = m[1]
			continue
		}
		if m := targetRe.FindStringSubmatch(line); m != nil {
			if description != "" {
				targets = append(targets, Target{Name: m[1], Description: description})
			}
			continue
		}
		description = ""
	}
	return targets
}

// WriteHelp prints the documented targets as an aligned listing.
func WriteHelp(w io.Writer, targets []Target) {
	if len(targets) == 0 {
		fmt.Fprintln(w, "No documented targets found in Makefile")
		return
	}
	width := 0
	for _, t := range targets {
		width = max(width, len(t.Name))
	}
	fmt.Fprint(w, "Documented targets:\n\n")
	for _, t := range targets {
		fmt.Fprintf(w, "  %-*s   %s\n", width, t.Name, t.Description)
	}
}
