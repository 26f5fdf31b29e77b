package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/yarascan/internal/walk"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestParallelWalkHooks(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 40; i++ {
		files[fmt.Sprintf("d%d/f%02d.txt", i%4, i)] = "x"
	}
	root := writeTree(t, files)

	var (
		inits, finals, dones atomic.Int32
		mu                   sync.Mutex
		seen                 []string
		errs                 []error
	)
	hooks := Hooks[int]{
		Init: func() (int, error) {
			return int(inits.Add(1)), nil
		},
		File: func(w int, path string) error {
			mu.Lock()
			seen = append(seen, path)
			mu.Unlock()
			if filepath.Base(path) == "f07.txt" {
				return errors.New("boom")
			}
			return nil
		},
		Finalize: func(int) { finals.Add(1) },
		Done:     func() { dones.Add(1) },
		Error: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}

	require.NoError(t, ParallelWalk(context.Background(), walk.New(root), 4, hooks))

	assert.Equal(t, int32(4), inits.Load())
	assert.Equal(t, int32(4), finals.Load())
	assert.Equal(t, int32(1), dones.Load())
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "boom")

	sort.Strings(seen)
	assert.Len(t, seen, 40)
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i], "file visited twice")
	}
}

func TestParallelWalkEnumerationError(t *testing.T) {
	var dones atomic.Int32
	hooks := Hooks[int]{
		Init: func() (int, error) { return 0, nil },
		File: func(int, string) error { return nil },
		Done: func() { dones.Add(1) },
	}

	err := ParallelWalk(context.Background(), walk.New(filepath.Join(t.TempDir(), "missing")), 2, hooks)
	assert.Error(t, err)
	assert.Equal(t, int32(0), dones.Load())
}

func TestParallelWalkInitError(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "x", "b": "y"})
	initErr := errors.New("no evaluator")

	var files atomic.Int32
	hooks := Hooks[int]{
		Init: func() (int, error) { return 0, initErr },
		File: func(int, string) error {
			files.Add(1)
			return nil
		},
	}

	err := ParallelWalk(context.Background(), walk.New(root), 3, hooks)
	assert.ErrorIs(t, err, initErr)
	assert.Equal(t, int32(0), files.Load())
}

func TestParallelWalkCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hooks := Hooks[int]{
		Init: func() (int, error) { return 0, nil },
		File: func(int, string) error { return nil },
	}
	assert.ErrorIs(t, ParallelWalk(ctx, walk.New(root), 1, hooks), context.Canceled)
}
