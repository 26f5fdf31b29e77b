package scan

import (
	"fmt"
	"os"

	"github.com/scan-io-git/yarascan/internal/git"
	"github.com/scan-io-git/yarascan/internal/rules"
	"github.com/scan-io-git/yarascan/internal/upload"
	"github.com/scan-io-git/yarascan/pkg/shared/config"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) > 0 {
		options.Rules = args[0]
	}
	if options.Rules == "" && len(options.InlineRules) == 0 {
		return fmt.Errorf("a rules path or at least one 'rule' flag must be specified")
	}
	if options.Rules != "" && !isRemote(options.Rules) {
		if _, err := os.Stat(options.Rules); err != nil {
			return fmt.Errorf("the rules path is not accessible: %w", err)
		}
	}

	if len(options.Folders) == 0 && !options.TestRules {
		return fmt.Errorf("either 'folder' or 'testrules' flag must be specified")
	}
	if len(options.Folders) > 0 && options.TestRules {
		return fmt.Errorf("you cannot use 'folder' and 'testrules' flags at the same time")
	}
	for _, folder := range options.Folders {
		if _, err := os.Stat(folder); err != nil {
			return fmt.Errorf("the folder is not accessible: %w", err)
		}
	}

	if options.MinScore < 0 {
		return fmt.Errorf("the 'minscore' flag must not be negative")
	}
	if options.MaxSize < 0 {
		return fmt.Errorf("the 'maxsize' flag must not be negative")
	}
	if options.Threads < 0 {
		return fmt.Errorf("the 'threads' flag must not be negative")
	}
	if options.Format != "" {
		if err := config.ValidateFormat(options.Format); err != nil {
			return err
		}
	}

	if options.Upload != "" {
		if options.OutputPath == "" {
			return fmt.Errorf("the 'upload' flag requires the 'output' flag")
		}
		if _, err := upload.ParseTarget(options.Upload); err != nil {
			return err
		}
	}
	return nil
}

func isRemote(location string) bool {
	return git.IsRepositoryURL(location) || rules.IsDownloadURL(location)
}
