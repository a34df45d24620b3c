// Package apperr classifies the errors adt can end with and maps each class
// to a process exit code.
package apperr

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitFailure     = 1  // a tool ran and reported failures, or a generic failure
	ExitConfigError = 2  // malformed config or profile, inheritance cycle
	ExitEnvError    = 3  // a required tool binary is missing
	ExitUsageError  = 64 // bad arguments, missing targets, unknown command
)

// Kind is the error class.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindEnvironment
	KindConfig
	KindToolFailure
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindEnvironment:
		return "environment"
	case KindConfig:
		return "configuration"
	case KindToolFailure:
		return "tool failure"
	default:
		return "unknown"
	}
}

// Error is a classified error. Code overrides the kind's default exit code
// when non-zero (used to propagate a tool's own exit status).
type Error struct {
	Kind Kind
	Msg  string
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the process exit code for this error.
func (e *Error) ExitCode() int {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindUsage:
		return ExitUsageError
	case KindEnvironment:
		return ExitEnvError
	case KindConfig:
		return ExitConfigError
	default:
		return ExitFailure
	}
}

// Usagef returns a usage error.
func Usagef(format string, args ...any) error {
	return &Error{Kind: KindUsage, Msg: fmt.Sprintf(format, args...)}
}

// Environmentf returns an environment error.
func Environmentf(format string, args ...any) error {
	return &Error{Kind: KindEnvironment, Msg: fmt.Sprintf(format, args...)}
}

// Configf returns a configuration error.
func Configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// Config wraps err as a configuration error with a context message.
func Config(err error, format string, args ...any) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...), Err: err}
}

// ToolFailure reports that a tool ran and failed with the given exit code.
func ToolFailure(code int, format string, args ...any) error {
	if code == 0 {
		code = ExitFailure
	}
	return &Error{Kind: KindToolFailure, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ExitCode maps any error to a process exit code. Unclassified errors map to
// ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.ExitCode()
	}
	return ExitFailure
}
