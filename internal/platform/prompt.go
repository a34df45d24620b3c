package platform

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks yes/no questions.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// Interactive overrides terminal detection on In. nil means detect.
	Interactive *bool

	reader *bufio.Reader
}

// NewPrompter returns a prompter reading answers from in and writing
// questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out}
}

func (p *Prompter) interactive() bool {
	if p.Interactive != nil {
		return *p.Interactive
	}
	return IsTerminal(p.In)
}

// Confirm prints "question [y/N] " and reads one line. Only "y" and "yes"
// (any case) are a yes. Non-interactive input and read errors are a no.
func (p *Prompter) Confirm(question string) bool {
	if p.In == nil || !p.interactive() {
		return false
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	if p.Out != nil {
		fmt.Fprintf(p.Out, "  %s [y/N] ", question)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
