// Package scan evaluates every file under a root against a compiled rule set
// with a pool of workers, each owning one evaluator.
package scan

import (
	"sync/atomic"

	"github.com/scan-io-git/yarascan/internal/magic"
	"github.com/scan-io-git/yarascan/internal/userid"
)

// Counts is a snapshot of the run counters of one root.
type Counts struct {
	Scanned int64 // Files evaluated successfully
	Matched int64 // Files with at least one rule match, before score filtering
	Skipped int64 // Files over the size limit
}

// State is shared by all workers of one root. The tables are read-only; the
// counters only ever grow.
type State struct {
	Signatures *magic.Table
	Owners     userid.Table

	scanned atomic.Int64
	matched atomic.Int64
	skipped atomic.Int64
}

// NewState returns the state for one root. Both tables may be empty.
func NewState(signatures *magic.Table, owners userid.Table) *State {
	return &State{Signatures: signatures, Owners: owners}
}

func (s *State) fileScanned(matched bool) {
	s.scanned.Add(1)
	if matched {
		s.matched.Add(1)
	}
}

func (s *State) fileSkipped() {
	s.skipped.Add(1)
}

// Counts returns the counters. It is consistent only once every worker of the
// root has finished.
func (s *State) Counts() Counts {
	return Counts{
		Scanned: s.scanned.Load(),
		Matched: s.matched.Load(),
		Skipped: s.skipped.Load(),
	}
}
