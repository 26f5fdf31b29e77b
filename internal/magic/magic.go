// Package magic resolves file-type labels from leading byte signatures.
package magic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// Entry maps a byte prefix to a file-type label.
type Entry struct {
	Pattern []byte
	Label   string
}

// Table is an ordered list of signatures. It is immutable once parsed and safe
// for concurrent use.
type Table struct {
	entries []Entry
	maxLen  int
}

// Parse reads signature definitions of the form "CA FE BA BE;Java Class".
// Blank lines and lines starting with '#' are ignored.
func Parse(r io.Reader, source string) (*Table, error) {
	table := &Table{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ";")
		if len(parts) != 2 {
			return nil, &yerrors.FormatError{Source: source, Line: lineNo, Text: line}
		}

		tokens := strings.Fields(parts[0])
		if len(tokens) == 0 {
			return nil, &yerrors.FormatError{Source: source, Line: lineNo, Text: line, Err: fmt.Errorf("empty pattern")}
		}

		pattern := make([]byte, 0, len(tokens))
		for _, token := range tokens {
			b, err := strconv.ParseUint(token, 16, 8)
			if err != nil {
				return nil, &yerrors.FormatError{Source: source, Line: lineNo, Text: line, Err: err}
			}
			pattern = append(pattern, byte(b))
		}

		if len(pattern) > table.maxLen {
			table.maxLen = len(pattern)
		}
		table.entries = append(table.entries, Entry{Pattern: pattern, Label: strings.TrimSpace(parts[1])})
	}
	if err := scanner.Err(); err != nil {
		return nil, &yerrors.IOError{Op: "read", Path: source, Err: err}
	}

	return table, nil
}

// LoadFile parses the signature definitions stored at path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &yerrors.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Parse(f, path)
}

// Len returns the number of signatures.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// MaxPatternLen returns the longest signature length, i.e. how many leading
// bytes a file needs to be read for Lookup.
func (t *Table) MaxPatternLen() int {
	if t == nil {
		return 0
	}
	return t.maxLen
}

// Lookup returns the label of the first entry, in table order, whose pattern is
// a prefix of buf. The first entry wins even if a later one is longer.
func (t *Table) Lookup(buf []byte) (string, bool) {
	if t == nil || len(buf) == 0 {
		return "", false
	}
	for _, e := range t.entries {
		if bytes.HasPrefix(buf, e.Pattern) {
			return e.Label, true
		}
	}
	return "", false
}

// ReadPrefix reads at most n bytes from the start of the file. Short files
// yield a shorter buffer.
func ReadPrefix(path string, n int) ([]byte, error) {
	if path == "" || n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, int64(n)))
}

// Identify reads the leading bytes of the file and resolves its label. Read
// failures resolve to no label.
func (t *Table) Identify(path string) (string, bool) {
	buf, err := ReadPrefix(path, t.MaxPatternLen())
	if err != nil {
		return "", false
	}
	return t.Lookup(buf)
}
