// Package userid maps numeric file owner ids to user names using a
// passwd-formatted file.
package userid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// Table maps a numeric user id to a user name. Read-only once loaded.
type Table map[uint32]string

// Parse reads colon-delimited records. Lines with fewer than three fields are
// skipped; a non-numeric id fails the whole load. Later records override
// earlier ones with the same id.
func Parse(r io.Reader, source string) (Table, error) {
	users := Table{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		parts := strings.Split(line, ":")
		if len(parts) < 3 {
			continue
		}

		uid, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return nil, &yerrors.FormatError{Source: source, Line: lineNo, Text: line, Err: err}
		}
		users[uint32(uid)] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, &yerrors.IOError{Op: "read", Path: source, Err: err}
	}

	return users, nil
}

// LoadFile parses the passwd file at path.
func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &yerrors.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Parse(f, path)
}

// Lookup returns the user name for uid.
func (t Table) Lookup(uid uint32) (string, bool) {
	name, ok := t[uid]
	return name, ok
}
