// Package yara implements the rule engine on top of libyara.
package yara

import (
	"errors"
	"fmt"

	goyara "github.com/hillu/go-yara/v4"

	"github.com/scan-io-git/yarascan/internal/engine"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

type variable struct {
	name  string
	value string
}

// Compiler wraps a libyara compiler. libyara compilers can not be used after an
// error, so a failing source makes the compiler rebuild itself from the
// sources accepted so far.
type Compiler struct {
	compiler    *goyara.Compiler
	variables   []variable
	accepted    []engine.Source
	diagnostics []yerrors.Diagnostic
}

// NewCompiler returns an empty compiler.
func NewCompiler() (*Compiler, error) {
	c, err := goyara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("yara compiler init: %w", err)
	}
	return &Compiler{compiler: c}, nil
}

// DefineVariable declares an external string variable with a default value.
func (c *Compiler) DefineVariable(name, value string) error {
	if err := c.compiler.DefineVariable(name, value); err != nil {
		return fmt.Errorf("define variable %q: %w", name, err)
	}
	c.variables = append(c.variables, variable{name: name, value: value})
	return nil
}

// AddSource compiles src into the rule set.
func (c *Compiler) AddSource(src engine.Source) error {
	err := c.compiler.AddString(string(src.Data), "")
	if err == nil {
		c.accepted = append(c.accepted, src)
		return nil
	}

	diags := make([]yerrors.Diagnostic, 0, len(c.compiler.Errors))
	for _, msg := range c.compiler.Errors {
		diags = append(diags, yerrors.Diagnostic{Origin: src.Origin, Line: msg.Line, Text: msg.Text})
	}
	if len(diags) == 0 {
		diags = append(diags, yerrors.Diagnostic{Origin: src.Origin, Text: err.Error()})
	}
	c.diagnostics = append(c.diagnostics, diags...)

	if rerr := c.rebuild(); rerr != nil {
		return &yerrors.RuleCompileError{Diagnostics: diags, Err: rerr}
	}
	return &yerrors.RuleCompileError{Diagnostics: diags, Err: err}
}

func (c *Compiler) rebuild() error {
	c.compiler.Destroy()
	fresh, err := goyara.NewCompiler()
	if err != nil {
		return fmt.Errorf("yara compiler init: %w", err)
	}
	c.compiler = fresh
	for _, v := range c.variables {
		if err := c.compiler.DefineVariable(v.name, v.value); err != nil {
			return fmt.Errorf("define variable %q: %w", v.name, err)
		}
	}
	for _, src := range c.accepted {
		if err := c.compiler.AddString(string(src.Data), ""); err != nil {
			return fmt.Errorf("re-adding %s: %w", src.Origin, err)
		}
	}
	return nil
}

// Diagnostics returns every compile error reported so far.
func (c *Compiler) Diagnostics() []yerrors.Diagnostic {
	return c.diagnostics
}

// Build returns the compiled rule set. At least one source must have compiled.
func (c *Compiler) Build() (engine.Rules, error) {
	if len(c.accepted) == 0 {
		return nil, &yerrors.RuleCompileError{
			Diagnostics: c.diagnostics,
			Err:         errors.New("no rule source compiled"),
		}
	}
	rules, err := c.compiler.GetRules()
	if err != nil {
		return nil, &yerrors.RuleCompileError{Diagnostics: c.diagnostics, Err: err}
	}
	return &Rules{rules: rules}, nil
}

// Close releases the compiler.
func (c *Compiler) Close() {
	if c.compiler != nil {
		c.compiler.Destroy()
		c.compiler = nil
	}
}

// Rules is a compiled libyara rule set.
type Rules struct {
	rules *goyara.Rules
}

// NewEvaluator creates a scanner bound to the rule set.
func (r *Rules) NewEvaluator() (engine.Evaluator, error) {
	s, err := goyara.NewScanner(r.rules)
	if err != nil {
		return nil, fmt.Errorf("yara scanner init: %w", err)
	}
	return &Evaluator{scanner: s}, nil
}

// Count returns the number of compiled rules.
func (r *Rules) Count() int {
	return len(r.rules.GetRules())
}

// Close releases the rule set. Evaluators must be closed first.
func (r *Rules) Close() {
	if r.rules != nil {
		r.rules.Destroy()
		r.rules = nil
	}
}

// Evaluator wraps a libyara scanner.
type Evaluator struct {
	scanner *goyara.Scanner
}

// SetVariable sets an external variable for the following scans.
func (e *Evaluator) SetVariable(name, value string) error {
	if err := e.scanner.DefineVariable(name, value); err != nil {
		return fmt.Errorf("set variable %q: %w", name, err)
	}
	return nil
}

// ScanFile evaluates the rules against the content of the file.
func (e *Evaluator) ScanFile(path string) ([]engine.Match, error) {
	var matches goyara.MatchRules
	if err := e.scanner.SetCallback(&matches).ScanFile(path); err != nil {
		return nil, err
	}

	result := make([]engine.Match, 0, len(matches))
	for _, m := range matches {
		metas := make([]engine.Meta, 0, len(m.Metas))
		for _, meta := range m.Metas {
			metas = append(metas, engine.Meta{Identifier: meta.Identifier, Value: meta.Value})
		}
		result = append(result, engine.Match{
			Rule:      m.Rule,
			Namespace: m.Namespace,
			Tags:      m.Tags,
			Metas:     metas,
		})
	}
	return result, nil
}

// Close releases the scanner.
func (e *Evaluator) Close() {
	if e.scanner != nil {
		e.scanner.Destroy()
		e.scanner = nil
	}
}
