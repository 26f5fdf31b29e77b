package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/scan-io-git/yarascan/internal/engine"
	"github.com/scan-io-git/yarascan/internal/report"
)

// DefaultScore is the score of a match whose rule carries no usable score.
const DefaultScore = 50

// Aggregator scores rule matches and keeps the ones reaching the minimum
// score. Safe for concurrent use.
type Aggregator struct {
	minScore int64

	mu      sync.Mutex
	buffer  []report.Match
	drained bool
}

// NewAggregator returns an aggregator retaining matches with score >= minScore.
func NewAggregator(minScore int64) *Aggregator {
	return &Aggregator{minScore: minScore}
}

// Add scores the matches of one file and appends the retained records.
// It returns the number of records retained.
func (a *Aggregator) Add(path string, matches []engine.Match) int {
	var records []report.Match
	for _, m := range matches {
		rec := NewRecord(m)
		if rec.Score >= a.minScore {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return 0
	}

	imagePath := canonicalPath(path)
	digest := fileDigest(path)
	for i := range records {
		records[i].ImagePath = imagePath
		records[i].SHA256 = digest
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer = append(a.buffer, records...)
	return len(records)
}

// Drain returns every retained record. Only the first call returns records.
func (a *Aggregator) Drain() []report.Match {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drained {
		return nil
	}
	a.drained = true
	out := a.buffer
	a.buffer = nil
	if out == nil {
		out = []report.Match{}
	}
	return out
}

// NewRecord derives the report fields of a match from its rule metadata.
//
// "score" or "severity" set the score (integers, or strings holding one; an
// unparsable string keeps the default). Keys starting with "desc" set the
// description, "reference" and keys starting with "report" set the reference.
// A "context" of yes, true or 1 marks the match informational and forces the
// score to 0 whatever else the rule declares.
func NewRecord(m engine.Match) report.Match {
	rec := report.Match{
		Signature: m.Rule,
		Score:     DefaultScore,
	}
	contextual := false

	for _, meta := range m.Metas {
		key := meta.Identifier
		text, isText := meta.Value.(string)

		switch {
		case key == "score" || key == "severity":
			rec.Score = metaScore(meta.Value, rec.Score)
		case key == "context":
			if isText && (text == "yes" || text == "true" || text == "1") {
				contextual = true
			}
		}
		if strings.HasPrefix(key, "desc") && isText {
			rec.Description = text
		}
		if (key == "reference" || strings.HasPrefix(key, "report")) && isText {
			rec.Reference = text
		}
	}

	if contextual {
		rec.Score = 0
	}
	return rec
}

// metaScore reads a score value. Values of other types leave current unchanged.
func metaScore(v interface{}, current int64) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case string:
		score, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return DefaultScore
		}
		return score
	default:
		return current
	}
}

// canonicalPath returns the absolute path with symlinks resolved, or "" when
// it can not be resolved.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return ""
	}
	return resolved
}

// fileDigest returns the hex SHA-256 of the file, or "" when it can not be read.
func fileDigest(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
