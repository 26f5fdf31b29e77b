package scan

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/yarascan/internal/engine"
	"github.com/scan-io-git/yarascan/internal/magic"
	"github.com/scan-io-git/yarascan/internal/report"
	"github.com/scan-io-git/yarascan/internal/userid"
	"github.com/scan-io-git/yarascan/internal/walk"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// ErrorSink receives per-file errors. Implementations must be safe for
// concurrent use.
type ErrorSink interface {
	Error(err error)
}

// Options control a scan.
type Options struct {
	Workers  int
	MinScore int64
	MaxSize  int64    // Files larger than this are skipped; 0 disables the limit
	Filters  []string // Glob filters for the walked files; none scans everything
}

// Result is the outcome of scanning one root.
type Result struct {
	Root    string
	Matches []report.Match
	Counts  Counts
}

// Scanner evaluates roots against one compiled rule set.
type Scanner struct {
	rules      engine.Rules
	signatures *magic.Table
	options    Options
	errors     ErrorSink
	logger     hclog.Logger
}

// NewScanner returns a scanner. signatures may be nil.
func NewScanner(rules engine.Rules, signatures *magic.Table, options Options, errors ErrorSink, logger hclog.Logger) *Scanner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scanner{
		rules:      rules,
		signatures: signatures,
		options:    options,
		errors:     errors,
		logger:     logger,
	}
}

// ScanRoot scans every file under root. owners resolves file owners for this
// root and may be empty. Per-file failures are sent to the error sink; only a
// failure to enumerate the root is returned.
func (s *Scanner) ScanRoot(ctx context.Context, root string, owners userid.Table) (*Result, error) {
	walker := walk.New(root)
	for _, pattern := range s.options.Filters {
		if err := walker.Filter(pattern); err != nil {
			return nil, err
		}
	}

	state := NewState(s.signatures, owners)
	aggregator := NewAggregator(s.options.MinScore)
	result := &Result{Root: root}

	hooks := Hooks[engine.Evaluator]{
		Init: func() (engine.Evaluator, error) {
			ev, err := s.rules.NewEvaluator()
			if err != nil {
				return nil, fmt.Errorf("failed to create evaluator: %w", err)
			}
			return ev, nil
		},
		File: func(ev engine.Evaluator, path string) error {
			return s.scanFile(state, aggregator, ev, path)
		},
		Finalize: func(ev engine.Evaluator) {
			ev.Close()
		},
		Done: func() {
			result.Matches = aggregator.Drain()
		},
		Error: s.reportError,
	}

	s.logger.Debug("scanning root", "root", root, "workers", s.options.Workers)
	if err := ParallelWalk(ctx, walker, s.options.Workers, hooks); err != nil {
		return nil, fmt.Errorf("scan of %q failed: %w", root, err)
	}

	result.Counts = state.Counts()
	s.logger.Info("root scanned",
		"root", root,
		"scanned", result.Counts.Scanned,
		"matched", result.Counts.Matched,
		"skipped", result.Counts.Skipped,
		"reported", len(result.Matches),
	)
	return result, nil
}

// scanFile runs one file through the evaluator of the calling worker. The
// evaluator variables are reset before returning, whatever the outcome.
func (s *Scanner) scanFile(state *State, aggregator *Aggregator, ev engine.Evaluator, path string) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return &yerrors.IOError{Op: "stat", Path: path, Err: err}
	}
	if s.options.MaxSize > 0 && info.Size() > s.options.MaxSize {
		state.fileSkipped()
		s.logger.Debug("file skipped: too large", "path", path, "size", info.Size(), "max", s.options.MaxSize)
		return nil
	}

	fc := NewFileContext(path, info, state)

	defer func() {
		if rerr := engine.ResetVariables(ev); rerr != nil && err == nil {
			err = &yerrors.EvaluationError{Path: path, Err: rerr}
		}
	}()
	if err := fc.Inject(ev); err != nil {
		return &yerrors.EvaluationError{Path: path, Err: err}
	}

	matches, err := ev.ScanFile(path)
	if err != nil {
		return &yerrors.EvaluationError{Path: path, Err: err}
	}

	aggregator.Add(path, matches)
	state.fileScanned(len(matches) > 0)
	return nil
}

func (s *Scanner) reportError(err error) {
	if s.errors != nil {
		s.errors.Error(err)
		return
	}
	s.logger.Error("file scan failed", "error", err)
}
