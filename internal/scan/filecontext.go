package scan

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/scan-io-git/yarascan/internal/engine"
)

// FileContext holds the values injected into the evaluator for one file.
// Owner and FileType are empty when unknown.
type FileContext struct {
	Path      string
	Name      string
	Extension string
	Owner     string
	FileType  string
}

// NewFileContext derives the context of the file at path. Missing enrichment
// is not an error.
func NewFileContext(path string, info fs.FileInfo, state *State) FileContext {
	name := filepath.Base(path)
	fc := FileContext{
		Path:      path,
		Name:      name,
		Extension: extension(name),
	}

	if uid, ok := fileOwner(info); ok {
		fc.Owner, _ = state.Owners.Lookup(uid)
	}
	fc.FileType, _ = state.Signatures.Identify(path)

	return fc
}

// extension returns the part of name after the last dot, without the dot.
// Dotfiles such as ".bashrc" have no extension.
func extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return ""
	}
	return name[idx+1:]
}

// Inject sets every external variable of the evaluator, absent values as "".
func (c FileContext) Inject(e engine.Evaluator) error {
	values := map[string]string{
		engine.VarFilePath:  c.Path,
		engine.VarFileName:  c.Name,
		engine.VarExtension: c.Extension,
		engine.VarOwner:     c.Owner,
		engine.VarFileType:  c.FileType,
	}
	for _, name := range engine.Variables {
		if err := e.SetVariable(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}
