//go:build !unix

package scan

import "io/fs"

// File ownership is not exposed as a numeric id on this platform.
func fileOwner(fs.FileInfo) (uint32, bool) {
	return 0, false
}
