// Package report holds accepted rule matches and renders them.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Report formats.
const (
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatSARIF    = "sarif"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Match is one accepted rule match for one file. The JSON names are the ones
// consumed by downstream tooling.
type Match struct {
	ImagePath   string `json:"ImagePath"`   // Canonical absolute path of the file
	SHA256      string `json:"SHA256"`      // Hex content hash
	Signature   string `json:"Signature"`   // Rule identifier
	Description string `json:"Description"` // From "desc*" metadata
	Reference   string `json:"Reference"`   // From "reference" or "report*" metadata
	Score       int64  `json:"Score"`
}

// Extension returns the file extension used for a format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatJSONL:
		return "jsonl"
	case FormatSARIF:
		return "sarif"
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	default:
		return "json"
	}
}

// Render serializes matches in the given format. An empty slice is rendered
// as an explicit empty report ("[]" for JSON).
func Render(format string, matches []Match) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return renderJSON(matches)
	case FormatJSONL:
		return renderJSONL(matches)
	case FormatSARIF:
		return renderSARIF(matches)
	case FormatMarkdown:
		return renderMarkdown(matches)
	case FormatHTML:
		return renderHTML(matches)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

func renderJSON(matches []Match) ([]byte, error) {
	if len(matches) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return nil, fmt.Errorf("failed to render JSON: %w", err)
	}
	return data, nil
}

// renderJSONL writes one record per line. An empty report is a single "[]"
// line.
func renderJSONL(matches []Match) ([]byte, error) {
	if len(matches) == 0 {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, m := range matches {
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("failed to render JSON line: %w", err)
		}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
