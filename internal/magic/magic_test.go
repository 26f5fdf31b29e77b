package magic

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantLen    int
		wantMaxLen int
		wantErr    bool
	}{
		{name: "valid", input: "# Comments\nCA FE;Java Class\n5B 30 30;MimiLSA\n", wantLen: 2, wantMaxLen: 3},
		{name: "empty", input: "", wantLen: 0, wantMaxLen: 0},
		{name: "comments only", input: "# Comment 1\n# Comment 2", wantLen: 0, wantMaxLen: 0},
		{name: "indented comment and blanks", input: "\n   \n  # note\n4D 5A ; PE \n", wantLen: 1, wantMaxLen: 2},
		{name: "missing separator", input: "CA FE Java Class", wantErr: true},
		{name: "extra separator", input: "CA FE;Java;Class", wantErr: true},
		{name: "invalid hex", input: "CA FG;Java Class", wantErr: true},
		{name: "token larger than a byte", input: "CAFE;Java Class", wantErr: true},
		{name: "empty pattern", input: " ;Nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(strings.NewReader(tt.input), "test")
			if tt.wantErr {
				require.Error(t, err)
				var formatErr *yerrors.FormatError
				assert.True(t, errors.As(err, &formatErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, table.Len())
			assert.Equal(t, tt.wantMaxLen, table.MaxPatternLen())
		})
	}
}

func TestParseKeepsOrderAndLabels(t *testing.T) {
	table, err := Parse(strings.NewReader("4D 5A;  PE executable \n7F 45 4C 46;ELF\n"), "test")
	require.NoError(t, err)

	entries := table.entries
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Pattern: []byte{0x4D, 0x5A}, Label: "PE executable"}, entries[0])
	assert.Equal(t, Entry{Pattern: []byte{0x7F, 0x45, 0x4C, 0x46}, Label: "ELF"}, entries[1])
}

func TestFormatErrorNamesLine(t *testing.T) {
	_, err := Parse(strings.NewReader("CA FE;Java Class\nCA FE Java Class\n"), "sigs.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "CA FE Java Class")
}

func TestLookup(t *testing.T) {
	table, err := Parse(strings.NewReader("CA FE;Java Class\n5B 30 30;MimiLSA\n"), "test")
	require.NoError(t, err)

	label, ok := table.Lookup([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	assert.True(t, ok)
	assert.Equal(t, "Java Class", label)

	label, ok = table.Lookup([]byte("[00"))
	assert.True(t, ok)
	assert.Equal(t, "MimiLSA", label)

	_, ok = table.Lookup([]byte{0x00, 0x01})
	assert.False(t, ok)

	_, ok = table.Lookup(nil)
	assert.False(t, ok)

	// shorter than the pattern
	_, ok = table.Lookup([]byte{0xCA})
	assert.False(t, ok)
}

func TestLookupFirstEntryWins(t *testing.T) {
	table, err := Parse(strings.NewReader("CA;Short\nCA FE BA BE;Long\n"), "test")
	require.NoError(t, err)

	label, ok := table.Lookup([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	assert.True(t, ok)
	assert.Equal(t, "Short", label)
}

func TestIdentify(t *testing.T) {
	dir := t.TempDir()
	table, err := Parse(strings.NewReader("CA FE;Java Class\n5B 30 30;MimiLSA\n"), "test")
	require.NoError(t, err)

	class := filepath.Join(dir, "A.class")
	require.NoError(t, os.WriteFile(class, []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00}, 0o644))
	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{0xCA}, 0o644))

	label, ok := table.Identify(class)
	assert.True(t, ok)
	assert.Equal(t, "Java Class", label)

	_, ok = table.Identify(short)
	assert.False(t, ok)

	_, ok = table.Identify(filepath.Join(dir, "missing"))
	assert.False(t, ok)

	var empty *Table
	_, ok = empty.Identify(class)
	assert.False(t, ok)
}

func TestReadPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o644))

	buf, err := ReadPrefix(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), buf)

	buf, err = ReadPrefix(path, 64)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), buf)

	buf, err = ReadPrefix(path, 0)
	require.NoError(t, err)
	assert.Empty(t, buf)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	var ioErr *yerrors.IOError
	assert.True(t, errors.As(err, &ioErr))
}
