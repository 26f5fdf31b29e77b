// Package walk enumerates regular files below a root, optionally restricted by
// glob filters.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// Walker enumerates files under a root. It can be walked any number of times.
type Walker struct {
	root    string
	filters []glob.Glob
}

// New returns a walker for root.
func New(root string) *Walker {
	return &Walker{root: root}
}

// Filter adds a glob pattern such as "**/*.yar". Patterns are matched against
// the slash-separated path relative to the root; "**" spans directories. A
// file is yielded when it matches any filter, or always when none is set.
func (w *Walker) Filter(pattern string) error {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	w.filters = append(w.filters, g)
	return nil
}

// Root returns the walked root.
func (w *Walker) Root() string {
	return w.root
}

func (w *Walker) accept(rel string) bool {
	if len(w.filters) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, g := range w.filters {
		// "**/" also has to match files directly in the root
		if g.Match(rel) || g.Match("./"+rel) {
			return true
		}
	}
	return false
}

// Walk calls fn for every regular file under the root in lexical order.
// A root that is a regular file yields itself. Symlinks are not followed.
// Enumeration errors and errors returned by fn stop the walk.
func (w *Walker) Walk(ctx context.Context, fn func(path string) error) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return &yerrors.IOError{Op: "walk", Path: w.root, Err: err}
	}
	if info.Mode().IsRegular() {
		if !w.accept(filepath.Base(w.root)) {
			return nil
		}
		return fn(w.root)
	}

	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &yerrors.IOError{Op: "walk", Path: path, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return &yerrors.IOError{Op: "walk", Path: path, Err: err}
		}
		if !w.accept(rel) {
			return nil
		}
		return fn(path)
	})
}
