//go:build unix

package scan

import (
	"io/fs"
	"syscall"
)

func fileOwner(info fs.FileInfo) (uint32, bool) {
	if info == nil {
		return 0, false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Uid, true
}
