// Package rules resolves where rules come from and reads their sources.
package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/yarascan/internal/engine"
	"github.com/scan-io-git/yarascan/internal/git"
	"github.com/scan-io-git/yarascan/internal/walk"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

// Filters select rule files inside a rules folder.
var Filters = []string{"**/*.yar", "**/*.yara"}

// InlineOrigin names sources given as rule text on the command line.
const InlineOrigin = "inline"

// RepositoryFetcher makes a remote rules repository available locally.
type RepositoryFetcher interface {
	FetchRules(ctx context.Context, cloneURL, branch string) (string, error)
}

// Set is a collection of rule sources.
type Set struct {
	// Root is the local rules folder the sources were read from, the parent
	// folder for a single rule file. Relative paths
	// of companion files, such as the signature table, resolve against it.
	// Empty for downloaded files.
	Root    string
	Sources []engine.Source
}

// Collector reads rule sources from local paths, git repositories and URLs.
type Collector struct {
	logger  hclog.Logger
	fetcher RepositoryFetcher
	client  *resty.Client
	branch  string
}

// NewCollector returns a collector. fetcher and client may be nil when the
// matching locations are not used.
func NewCollector(logger hclog.Logger, fetcher RepositoryFetcher, client *resty.Client) *Collector {
	return &Collector{logger: logger, fetcher: fetcher, client: client}
}

// WithBranch selects the branch checked out for repository locations.
func (c *Collector) WithBranch(branch string) *Collector {
	c.branch = branch
	return c
}

// Collect reads every rule source of location followed by the inline rules.
// Unreadable rule files abort the collection.
func (c *Collector) Collect(ctx context.Context, location string, inline []string) (*Set, error) {
	set := &Set{}

	switch {
	case location == "":
	case git.IsRepositoryURL(location):
		if c.fetcher == nil {
			return nil, fmt.Errorf("no git client configured for %q", location)
		}
		folder, err := c.fetcher.FetchRules(ctx, location, c.branch)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rules repository: %w", err)
		}
		if err := c.collectLocal(ctx, folder, set); err != nil {
			return nil, err
		}
	case IsDownloadURL(location):
		src, err := c.download(ctx, location)
		if err != nil {
			return nil, err
		}
		set.Sources = append(set.Sources, src)
	default:
		if err := c.collectLocal(ctx, location, set); err != nil {
			return nil, err
		}
	}

	for _, text := range inline {
		set.Sources = append(set.Sources, engine.Source{Origin: InlineOrigin, Data: []byte(text)})
	}
	c.logger.Debug("rule sources collected", "location", location, "sources", len(set.Sources))
	return set, nil
}

func (c *Collector) collectLocal(ctx context.Context, root string, set *Set) error {
	set.Root = root

	// a rule file given directly is used whatever its name
	walker := walk.New(root)
	if info, err := os.Stat(root); err == nil && info.Mode().IsRegular() {
		set.Root = filepath.Dir(root)
		return walker.Walk(ctx, func(path string) error {
			return c.readSource(path, set)
		})
	}

	for _, pattern := range Filters {
		if err := walker.Filter(pattern); err != nil {
			return err
		}
	}

	return walker.Walk(ctx, func(path string) error {
		return c.readSource(path, set)
	})
}

func (c *Collector) readSource(path string, set *Set) error {
	c.logger.Debug("attempting to parse", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return &yerrors.IOError{Op: "read", Path: path, Err: err}
	}
	set.Sources = append(set.Sources, engine.Source{Origin: path, Data: data})
	return nil
}

func (c *Collector) download(ctx context.Context, url string) (engine.Source, error) {
	if c.client == nil {
		return engine.Source{}, fmt.Errorf("no HTTP client configured for %q", url)
	}

	c.logger.Debug("downloading rules", "url", url)
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return engine.Source{}, fmt.Errorf("failed to download rules from %q: %w", url, err)
	}
	if resp.IsError() {
		return engine.Source{}, fmt.Errorf("failed to download rules from %q: %s", url, resp.Status())
	}
	return engine.Source{Origin: url, Data: resp.Body()}, nil
}

// IsDownloadURL reports whether location is an http(s) URL of a rule file.
func IsDownloadURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
