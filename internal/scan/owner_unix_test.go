//go:build unix

package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/yarascan/internal/userid"
)

func TestNewFileContextOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owned.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	uid, ok := fileOwner(info)
	require.True(t, ok)
	assert.Equal(t, uint32(os.Getuid()), uid)

	state := NewState(nil, userid.Table{uid: "analyst"})
	assert.Equal(t, "analyst", NewFileContext(path, info, state).Owner)

	state = NewState(nil, userid.Table{})
	assert.Equal(t, "", NewFileContext(path, info, state).Owner)
}
