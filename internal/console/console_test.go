package console

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

func TestFormatError(t *testing.T) {
	plain := errors.New("rules compilation failed")
	assert.Equal(t, "error: rules compilation failed", FormatError(plain, false))

	wrapped := &yerrors.IOError{Op: "open", Path: "/x", Err: errors.New("permission denied")}
	assert.Equal(t, "error: can not open `/x`: permission denied: permission denied", FormatError(wrapped, false))

	colored := FormatError(plain, true)
	assert.Contains(t, colored, "\x1b[")
	assert.Contains(t, colored, "rules compilation failed")
}

func TestPrinterRoutesMessages(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut, false)

	p.Info("[]")
	p.Error(fmt.Errorf("scan failed: %w", errors.New("boom")))
	p.Error(nil)
	p.Close()

	assert.Equal(t, "[]\n", out.String())
	assert.Equal(t, "error: scan failed: boom: boom\n", errOut.String())
}

func TestPrinterConcurrentLines(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Info(fmt.Sprintf("worker-%02d line-%02d", i, j))
			}
		}(i)
	}
	wg.Wait()
	p.Close()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 1000)
	for _, line := range lines {
		assert.Regexp(t, `^worker-\d{2} line-\d{2}$`, line)
	}
	assert.Empty(t, errOut.String())
}

func TestPrinterCloseTwice(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out, false)
	p.Info("one")
	p.Close()
	p.Close()
	p.Info("dropped")
	assert.Equal(t, "one\n", out.String())
}
