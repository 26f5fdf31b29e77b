// Package engine defines the boundary to the rule engine: compiling rule
// sources into a rule set and evaluating files with per-evaluator variables.
package engine

import (
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// External variables available to rules. Every variable is declared with an
// empty default at compile time and set before each evaluation.
const (
	VarFilePath  = "filepath"
	VarFileName  = "filename"
	VarFileType  = "filetype"
	VarExtension = "extension"
	VarOwner     = "owner"
)

// Variables lists every external variable in declaration order.
var Variables = []string{VarFilePath, VarFileName, VarFileType, VarExtension, VarOwner}

// Source is one unit of rule text.
type Source struct {
	Origin string // File path, URL or "inline"
	Data   []byte
}

// Meta is one metadata entry of a rule. Value is an int, string or bool.
type Meta struct {
	Identifier string
	Value      interface{}
}

// Match is a rule that matched a file.
type Match struct {
	Rule      string
	Namespace string
	Tags      []string
	Metas     []Meta // In declaration order
}

// Compiler accumulates rule sources. A source that fails to compile is
// reported and dropped; it does not prevent the remaining sources from building.
type Compiler interface {
	DefineVariable(name, value string) error
	AddSource(src Source) error
	Diagnostics() []yerrors.Diagnostic
	Build() (Rules, error)
	Close()
}

// Rules is a compiled rule set. It is read-only and may be shared by any
// number of evaluators.
type Rules interface {
	NewEvaluator() (Evaluator, error)
	Count() int
	Close()
}

// Evaluator scans files against a rule set. It holds mutable per-scan state
// and must not be used by more than one goroutine at a time.
type Evaluator interface {
	SetVariable(name, value string) error
	ScanFile(path string) ([]Match, error)
	Close()
}

// Compile declares the external variables, adds every source and builds the
// rule set. onDiagnostic is called for every source that failed to compile.
func Compile(c Compiler, sources []Source, onDiagnostic func(src Source, err error)) (Rules, error) {
	for _, name := range Variables {
		if err := c.DefineVariable(name, ""); err != nil {
			return nil, &yerrors.RuleCompileError{Err: err}
		}
	}

	for _, src := range sources {
		if err := c.AddSource(src); err != nil && onDiagnostic != nil {
			onDiagnostic(src, err)
		}
	}

	return c.Build()
}

// ResetVariables sets every external variable of the evaluator to "".
func ResetVariables(e Evaluator) error {
	for _, name := range Variables {
		if err := e.SetVariable(name, ""); err != nil {
			return err
		}
	}
	return nil
}
