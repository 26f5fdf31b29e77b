// Package enginetest provides an in-memory rule engine for tests.
package enginetest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/scan-io-git/yarascan/internal/engine"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// Rule matches when its condition holds for the file content and variables.
type Rule struct {
	Name  string
	Metas []engine.Meta
	// Contains matches files containing the bytes. Ignored when Condition is set.
	Contains  []byte
	Condition func(content []byte, vars map[string]string) bool
}

func (r Rule) matches(content []byte, vars map[string]string) bool {
	if r.Condition != nil {
		return r.Condition(content, vars)
	}
	return len(r.Contains) > 0 && bytes.Contains(content, r.Contains)
}

// Scan records the variables seen by one evaluation.
type Scan struct {
	Path string
	Vars map[string]string
}

// Rules is a fake compiled rule set.
type Rules struct {
	rules []Rule
	// FailOn makes ScanFile fail for the path when it returns an error.
	FailOn func(path string) error

	mu         sync.Mutex
	scans      []Scan
	evaluators []*Evaluator
	created    atomic.Int64
	closed     atomic.Int64
	concurrent atomic.Int64
}

// NewRules returns a rule set evaluating the given rules.
func NewRules(rules ...Rule) *Rules {
	return &Rules{rules: rules}
}

// NewEvaluator returns a new evaluator with all variables set to "".
func (r *Rules) NewEvaluator() (engine.Evaluator, error) {
	r.created.Add(1)
	vars := make(map[string]string, len(engine.Variables))
	for _, name := range engine.Variables {
		vars[name] = ""
	}
	ev := &Evaluator{rules: r, vars: vars}
	r.mu.Lock()
	r.evaluators = append(r.evaluators, ev)
	r.mu.Unlock()
	return ev, nil
}

// Evaluators returns every evaluator created so far.
func (r *Rules) Evaluators() []*Evaluator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Evaluator, len(r.evaluators))
	copy(out, r.evaluators)
	return out
}

// Count returns the number of rules.
func (r *Rules) Count() int { return len(r.rules) }

// Close is a no-op.
func (r *Rules) Close() {}

// Created returns the number of evaluators created.
func (r *Rules) Created() int { return int(r.created.Load()) }

// Closed returns the number of evaluators closed.
func (r *Rules) Closed() int { return int(r.closed.Load()) }

// ConcurrentUses returns how many times an evaluator was entered while busy.
func (r *Rules) ConcurrentUses() int { return int(r.concurrent.Load()) }

// Scans returns every evaluation performed so far.
func (r *Rules) Scans() []Scan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Scan, len(r.scans))
	copy(out, r.scans)
	return out
}

// Evaluator is a fake evaluator. It detects concurrent use.
type Evaluator struct {
	rules *Rules
	vars  map[string]string
	busy  atomic.Bool
}

// SetVariable sets a declared variable.
func (e *Evaluator) SetVariable(name, value string) error {
	if _, ok := e.vars[name]; !ok {
		return fmt.Errorf("undefined identifier %q", name)
	}
	e.vars[name] = value
	return nil
}

// Variables returns a copy of the current variable values. Call it only while
// the evaluator is idle.
func (e *Evaluator) Variables() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// ScanFile evaluates every rule against the file content.
func (e *Evaluator) ScanFile(path string) ([]engine.Match, error) {
	if !e.busy.CompareAndSwap(false, true) {
		e.rules.concurrent.Add(1)
	}
	defer e.busy.Store(false)

	snapshot := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		snapshot[k] = v
	}
	e.rules.mu.Lock()
	e.rules.scans = append(e.rules.scans, Scan{Path: path, Vars: snapshot})
	e.rules.mu.Unlock()

	if e.rules.FailOn != nil {
		if err := e.rules.FailOn(path); err != nil {
			return nil, err
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var matches []engine.Match
	for _, rule := range e.rules.rules {
		if rule.matches(content, snapshot) {
			matches = append(matches, engine.Match{Rule: rule.Name, Metas: rule.Metas})
		}
	}
	return matches, nil
}

// Close marks the evaluator closed.
func (e *Evaluator) Close() {
	e.rules.closed.Add(1)
}

// Compiler is a fake compiler. Each source holds one rule name per line; a
// line "error" makes the source fail. Compiled rules match files containing
// their name.
type Compiler struct {
	variables   map[string]string
	rules       []Rule
	diagnostics []yerrors.Diagnostic
}

// NewCompiler returns an empty fake compiler.
func NewCompiler() *Compiler {
	return &Compiler{variables: map[string]string{}}
}

// DefineVariable declares a variable.
func (c *Compiler) DefineVariable(name, value string) error {
	c.variables[name] = value
	return nil
}

// AddSource parses the rule names of src.
func (c *Compiler) AddSource(src engine.Source) error {
	var rules []Rule
	for i, line := range strings.Split(string(src.Data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "error" {
			diag := yerrors.Diagnostic{Origin: src.Origin, Line: i + 1, Text: "syntax error"}
			c.diagnostics = append(c.diagnostics, diag)
			return &yerrors.RuleCompileError{Diagnostics: []yerrors.Diagnostic{diag}}
		}
		rules = append(rules, Rule{Name: line, Contains: []byte(line)})
	}
	c.rules = append(c.rules, rules...)
	return nil
}

// Diagnostics returns the recorded compile errors.
func (c *Compiler) Diagnostics() []yerrors.Diagnostic { return c.diagnostics }

// Build returns the fake rule set.
func (c *Compiler) Build() (engine.Rules, error) {
	if len(c.rules) == 0 {
		return nil, &yerrors.RuleCompileError{Diagnostics: c.diagnostics, Err: errors.New("no rule source compiled")}
	}
	return NewRules(c.rules...), nil
}

// Close is a no-op.
func (c *Compiler) Close() {}
