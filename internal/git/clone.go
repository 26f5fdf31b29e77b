package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/yarascan/pkg/shared/config"
	log "github.com/scan-io-git/yarascan/pkg/shared/logger"
)

const lockRetryDelay = 500 * time.Millisecond

// FetchRules clones the rule repository at cloneURL into the rules cache, or
// updates an existing copy, and returns the local folder.
func (c *Client) FetchRules(ctx context.Context, cloneURL, branch string) (string, error) {
	targetFolder, err := TargetFolder(config.GetRulesCacheHome(c.globalConfig), cloneURL)
	if err != nil {
		c.logger.Error("failed to parse VCS URL", "VCSURL", cloneURL, "error", err)
		return "", err
	}
	return c.Clone(ctx, cloneURL, branch, targetFolder)
}

// Clone fetches cloneURL into targetFolder. An existing clone is fetched and
// reset to the branch instead.
func (c *Client) Clone(ctx context.Context, cloneURL, branch, targetFolder string) (string, error) {
	reference := determineBranch(branch)
	output := log.GetLoggerOutput(c.logger)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unlock, err := lockTarget(ctx, targetFolder)
	if err != nil {
		return "", err
	}
	defer unlock()

	c.logger.Debug("starting rules fetch", "branch", reference, "cloneURL", cloneURL, "targetFolder", targetFolder)
	repo, err := git.PlainCloneContext(ctx, targetFolder, false, c.cloneOptions(cloneURL, reference, output))
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
			c.logger.Error("error occurred during clone", "error", err, "targetFolder", targetFolder)
			return "", fmt.Errorf("error occurred during clone: %w", err)
		}

		c.logger.Info("rules repository already exists, updating...", "targetFolder", targetFolder)
		repo, err = git.PlainOpen(targetFolder)
		if err != nil {
			c.logger.Error("cannot open existing repository", "error", err, "targetFolder", targetFolder)
			return "", fmt.Errorf("cannot open existing repository: %w", err)
		}

		repo, err = c.updateRepository(ctx, repo, cloneURL, targetFolder, reference, output)
		if err != nil {
			return "", err
		}
	}

	if err := checkoutAndResetBranch(repo, reference, c.logger, targetFolder); err != nil {
		return "", err
	}

	c.logger.Info("rules repository ready", "branch", reference, "targetFolder", targetFolder)
	return targetFolder, nil
}

// lockTarget serializes fetches of the same cache folder across processes.
func lockTarget(ctx context.Context, targetFolder string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(targetFolder), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create rules cache folder: %w", err)
	}

	lock := flock.New(targetFolder + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", targetFolder, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", targetFolder)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (c *Client) cloneOptions(cloneURL string, reference plumbing.ReferenceName, output io.Writer) *git.CloneOptions {
	return &git.CloneOptions{
		Auth:            c.auth,
		URL:             cloneURL,
		ReferenceName:   reference,
		SingleBranch:    reference != "",
		Progress:        output,
		Depth:           config.SetThen(c.globalConfig.GitClient.Depth, 1),
		InsecureSkipTLS: config.GetBoolValue(c.globalConfig.GitClient, "InsecureTLS", false),
	}
}

// updateRepository fetches the remote. A repository missing the objects it
// needs is removed and cloned again.
func (c *Client) updateRepository(ctx context.Context, repo *git.Repository, cloneURL, targetFolder string, reference plumbing.ReferenceName, output io.Writer) (*git.Repository, error) {
	c.logger.Debug("update repo by using fetch", "targetFolder", targetFolder)
	fetchOptions := &git.FetchOptions{
		RemoteName:      "origin",
		Auth:            c.auth,
		Progress:        output,
		RefSpecs:        []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Depth:           config.SetThen(c.globalConfig.GitClient.Depth, 1),
		Force:           true,
		InsecureSkipTLS: config.GetBoolValue(c.globalConfig.GitClient, "InsecureTLS", false),
	}

	err := repo.FetchContext(ctx, fetchOptions)
	switch {
	case err == nil:
		return repo, nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		c.logger.Info("rules repository already up-to-date", "targetFolder", targetFolder)
		return repo, nil
	case errors.Is(err, plumbing.ErrObjectNotFound) || errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, transport.ErrEmptyRemoteRepository):
		c.logger.Warn("object/reference not found in the repository. Cloning again ...", "targetFolder", targetFolder, "error", err)
		if err := os.RemoveAll(targetFolder); err != nil {
			c.logger.Error("failed to remove repository", "error", err)
			return nil, fmt.Errorf("failed to remove repository: %w", err)
		}
		fresh, err := git.PlainCloneContext(ctx, targetFolder, false, c.cloneOptions(cloneURL, reference, output))
		if err != nil {
			c.logger.Error("retrying clone failed", "error", err)
			return nil, fmt.Errorf("retrying clone failed: %w", err)
		}
		return fresh, nil
	default:
		c.logger.Error("error occurred during fetch", "error", err, "targetFolder", targetFolder)
		return nil, fmt.Errorf("error occurred during fetch: %w", err)
	}
}

// checkoutAndResetBranch checks out the branch, or the remote HEAD when no
// branch is given, and resets the worktree.
func checkoutAndResetBranch(repo *git.Repository, branch plumbing.ReferenceName, logger hclog.Logger, targetFolder string) error {
	w, err := repo.Worktree()
	if err != nil {
		logger.Error("error accessing worktree", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error accessing worktree: %w", err)
	}

	if branch == "" {
		if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
			branch = head.Name()
		}
	}

	if branch != "" {
		logger.Debug("checking out branch", "branch", branch, "targetFolder", targetFolder)
		remote := plumbing.NewRemoteReferenceName("origin", branch.Short())
		opts := &git.CheckoutOptions{Branch: branch, Force: true}
		if ref, err := repo.Reference(remote, true); err == nil {
			// move the local branch to the fetched remote head
			if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, ref.Hash())); err != nil {
				return fmt.Errorf("error updating branch %q: %w", branch, err)
			}
		}
		if err := w.Checkout(opts); err != nil {
			logger.Error("error occurred during checkout", "error", err, "targetFolder", targetFolder)
			return fmt.Errorf("error occurred during checkout: %w", err)
		}
	}

	logger.Debug("resetting local repository", "targetFolder", targetFolder)
	if err := w.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		logger.Error("error occurred during reset", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error occurred during reset: %w", err)
	}
	return nil
}
