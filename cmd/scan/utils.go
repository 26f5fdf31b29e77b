package scan

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/yarascan/internal/console"
	"github.com/scan-io-git/yarascan/internal/engine"
	"github.com/scan-io-git/yarascan/internal/engine/yara"
	"github.com/scan-io-git/yarascan/internal/git"
	"github.com/scan-io-git/yarascan/internal/magic"
	"github.com/scan-io-git/yarascan/internal/report"
	"github.com/scan-io-git/yarascan/internal/rules"
	"github.com/scan-io-git/yarascan/internal/scan"
	"github.com/scan-io-git/yarascan/internal/upload"
	"github.com/scan-io-git/yarascan/internal/userid"
	"github.com/scan-io-git/yarascan/pkg/shared/config"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
	"github.com/scan-io-git/yarascan/pkg/shared/files"
	"github.com/scan-io-git/yarascan/pkg/shared/httpclient"
)

// ownersFile is the passwd file looked up under every scanned folder.
const ownersFile = "etc/passwd"

// newCompiler creates the rule compiler.
var newCompiler = func() (engine.Compiler, error) {
	return yara.NewCompiler()
}

// applyConfigDefaults fills the options not given on the command line from
// the configuration file.
func applyConfigDefaults(options *RunOptionsScan, flags *pflag.FlagSet, cfg *config.Config) {
	if !flags.Changed("threads") || options.Threads == 0 {
		options.Threads = config.GetThreads(cfg)
	}
	if !flags.Changed("minscore") {
		options.MinScore = config.GetMinScore(cfg)
	}
	if !flags.Changed("maxsize") {
		options.MaxSize = config.GetMaxSize(cfg)
	}
	if !flags.Changed("magic") {
		options.Magic = config.GetMagic(cfg)
	}
	if !flags.Changed("format") {
		options.Format = config.GetFormat(cfg)
	}
}

// execute runs the scan with validated options.
func execute(ctx context.Context, lg hclog.Logger, printer *console.Printer, options *RunOptionsScan) error {
	runID := uuid.New().String()
	lg = lg.With("run_id", runID)

	set, err := collectRules(ctx, lg, options)
	if err != nil {
		return yerrors.NewCommandError(err, 2)
	}

	compiled, err := compileRules(lg, printer, set)
	if err != nil {
		return yerrors.NewCommandError(err, 2)
	}
	defer compiled.Close()

	if options.TestRules {
		printer.Info("[+] Rules are valid!")
		return nil
	}

	signatures, err := loadSignatures(lg, resolveMagicPath(set.Root, options.Magic))
	if err != nil {
		return yerrors.NewCommandError(err, 2)
	}

	scanner := scan.NewScanner(compiled, signatures, scan.Options{
		Workers:  options.Threads,
		MinScore: options.MinScore,
		MaxSize:  options.MaxSize,
		Filters:  AppConfig.Scan.Filters,
	}, printer, lg)

	lg.Info("scanning", "folders", len(options.Folders), "workers", options.Threads)
	var (
		all    []report.Match
		failed int
	)
	for _, folder := range options.Folders {
		result, err := scanner.ScanRoot(ctx, folder, loadOwners(lg, folder))
		if err != nil {
			printer.Error(err)
			failed++
			continue
		}

		data, err := report.Render(options.Format, result.Matches)
		if err != nil {
			return yerrors.NewCommandError(err, 2)
		}
		printer.Info(string(data))
		all = append(all, result.Matches...)
	}

	if options.OutputPath != "" {
		if err := writeReport(ctx, lg, options, runID, all); err != nil {
			return yerrors.NewCommandError(err, 2)
		}
	}

	if failed > 0 {
		return yerrors.NewCommandError(fmt.Errorf("scan failed for %d of %d folders", failed, len(options.Folders)), 2)
	}
	lg.Info("scan command completed successfully", "reported", len(all))
	return nil
}

// collectRules reads the rule sources of the rules location and the inline rules.
func collectRules(ctx context.Context, lg hclog.Logger, options *RunOptionsScan) (*rules.Set, error) {
	var fetcher rules.RepositoryFetcher
	if git.IsRepositoryURL(options.Rules) {
		client, err := git.New(lg.Named("git"), AppConfig)
		if err != nil {
			return nil, err
		}
		fetcher = client
	}

	collector := rules.NewCollector(lg, fetcher, httpclient.New(lg.Named("http"), AppConfig)).WithBranch(options.Branch)
	return collector.Collect(ctx, options.Rules, options.InlineRules)
}

// compileRules compiles the collected sources. Sources that fail to compile
// are reported and left out; no compiled source at all is fatal.
func compileRules(lg hclog.Logger, printer *console.Printer, set *rules.Set) (engine.Rules, error) {
	compiler, err := newCompiler()
	if err != nil {
		return nil, err
	}
	defer compiler.Close()

	compiled, err := engine.Compile(compiler, set.Sources, func(src engine.Source, err error) {
		lg.Warn("rule source rejected", "origin", src.Origin)
		printer.Error(fmt.Errorf("rule error: %w", err))
	})
	if err != nil {
		return nil, err
	}

	lg.Info("rules compiled", "sources", len(set.Sources), "rules", compiled.Count(), "rejected", len(compiler.Diagnostics()))
	return compiled, nil
}

// resolveMagicPath returns the signature table location. Relative paths are
// resolved against the rules root.
func resolveMagicPath(rulesRoot, magicPath string) string {
	if magicPath == "" || filepath.IsAbs(magicPath) || rulesRoot == "" {
		return magicPath
	}
	return filepath.Join(rulesRoot, magicPath)
}

// loadSignatures loads the signature table. A missing table disables file
// type detection; a malformed one is an error.
func loadSignatures(lg hclog.Logger, path string) (*magic.Table, error) {
	if path == "" {
		return nil, nil
	}
	if err := files.ValidatePath(path); err != nil {
		lg.Warn("magic file specified but file not found", "path", path, "error", err)
		return nil, nil
	}

	table, err := magic.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse magic file: %w", err)
	}
	lg.Info("magics parsed", "count", table.Len(), "path", path)
	return table, nil
}

// loadOwners reads <folder>/etc/passwd. Any failure yields an empty table.
func loadOwners(lg hclog.Logger, folder string) userid.Table {
	path := filepath.Join(folder, ownersFile)
	lg.Debug("parsing passwd", "path", path)

	owners, err := userid.LoadFile(path)
	if err != nil {
		lg.Debug("passwd not usable", "path", path, "error", err)
		owners = userid.Table{}
	}
	if len(owners) == 0 {
		lg.Info("no users found in passwd", "folder", folder)
	} else {
		lg.Info("users found", "count", len(owners), "folder", folder)
	}
	return owners
}

// writeReport renders the combined report to the output path and uploads it
// when requested.
func writeReport(ctx context.Context, lg hclog.Logger, options *RunOptionsScan, runID string, matches []report.Match) error {
	if matches == nil {
		matches = []report.Match{}
	}
	data, err := report.Render(options.Format, matches)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("yarascan-report-%s.%s", runID, report.Extension(options.Format))
	outputPath, folder, err := files.DetermineFileFullPath(options.OutputPath, name)
	if err != nil {
		return err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return err
	}
	if err := files.WriteFile(outputPath, data); err != nil {
		return err
	}
	lg.Info("report written", "path", outputPath, "matches", len(matches))

	if options.Upload == "" {
		return nil
	}
	target, err := upload.ParseTarget(options.Upload)
	if err != nil {
		return err
	}
	uploader, err := upload.New(lg.Named("upload"), AppConfig)
	if err != nil {
		return err
	}
	_, err = uploader.UploadFile(ctx, outputPath, target)
	return err
}
