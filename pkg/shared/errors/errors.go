package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError reports a malformed line in a line-oriented input file.
type FormatError struct {
	Source string // Name of the input, e.g. a file path
	Line   int    // 1-based line number, 0 when unknown
	Text   string // Offending line
	Err    error  // Underlying parse error, if any
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("invalid line format %q", e.Text)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Diagnostic is a single message produced by the rule compiler.
type Diagnostic struct {
	Origin string
	Line   int
	Text   string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s(%d): %s", d.Origin, d.Line, d.Text)
	}
	if d.Origin != "" {
		return fmt.Sprintf("%s: %s", d.Origin, d.Text)
	}
	return d.Text
}

// RuleCompileError is returned when no usable rule set could be built.
type RuleCompileError struct {
	Diagnostics []Diagnostic
	Err         error
}

func (e *RuleCompileError) Error() string {
	parts := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		parts = append(parts, d.String())
	}
	msg := "rules compilation failed"
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(parts) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(parts, "; "))
	}
	return msg
}

func (e *RuleCompileError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem failure together with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("can not %s `%s`: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// EvaluationError is returned when the rule engine fails on a single file.
type EvaluationError struct {
	Path string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("error scanning `%s`: %v", e.Path, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// RootCause returns the innermost error of a wrapped chain.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// CommandError represents a failed command together with the process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
	Err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError instance carrying the error message and exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Err:         err,
	}
}
