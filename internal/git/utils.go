package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5/plumbing"
)

// determineBranch returns the reference for branch. An empty branch selects
// the remote default.
func determineBranch(branch string) plumbing.ReferenceName {
	if branch == "" {
		return ""
	}
	ref := plumbing.ReferenceName(branch)
	if !ref.IsBranch() && !ref.IsRemote() && !ref.IsTag() && !ref.IsNote() {
		return plumbing.NewBranchReferenceName(branch)
	}
	return ref
}

// IsRepositoryURL reports whether source looks like a git remote rather than a
// local path or a plain file URL.
func IsRepositoryURL(source string) bool {
	switch {
	case strings.HasPrefix(source, "git@"), strings.HasPrefix(source, "ssh://"), strings.HasPrefix(source, "git://"):
		return true
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return strings.HasSuffix(strings.TrimSuffix(source, "/"), ".git")
	default:
		return false
	}
}

// TargetFolder returns the cache folder for a repository: <cache>/<host>/<full name>.
func TargetFolder(cacheFolder, cloneURL string) (string, error) {
	info, err := vcsurl.Parse(cloneURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse VCS URL %q: %w", cloneURL, err)
	}
	if info.FullName == "" {
		return "", fmt.Errorf("no repository name in VCS URL %q", cloneURL)
	}
	return filepath.Join(cacheFolder, string(info.Host), filepath.FromSlash(info.FullName)), nil
}
