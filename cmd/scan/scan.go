package scan

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/yarascan/internal/console"
	"github.com/scan-io-git/yarascan/pkg/shared"
	"github.com/scan-io-git/yarascan/pkg/shared/config"
	"github.com/scan-io-git/yarascan/pkg/shared/errors"
	"github.com/scan-io-git/yarascan/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	Rules       string
	Folders     []string
	TestRules   bool
	Magic       string
	MinScore    int64
	MaxSize     int64
	Threads     int
	InlineRules []string
	Branch      string
	Format      string
	OutputPath  string
	Upload      string
}

// Global variables for configuration and command arguments
var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scanning a mounted disk image with a local rules folder
  yarascan scan /opt/signature-base -f /mnt/evidence

  # Scanning several folders with 8 workers, reporting scores from 60
  yarascan scan /opt/signature-base -f /mnt/disk1 -f /mnt/disk2 -j 8 --minscore 60

  # Checking that the rules compile
  yarascan scan /opt/signature-base --testrules

  # Using rules from a git repository and an additional inline rule
  yarascan scan https://github.com/Neo23x0/signature-base.git -f /mnt/evidence --rule 'rule eicar { strings: $a = "EICAR" condition: $a }'

  # Writing a SARIF report to a folder and uploading it to S3
  yarascan scan /opt/rules -f /mnt/evidence --format sarif --output /tmp/reports --upload s3://forensics/reports/`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan RULES {--folder/-f PATH ... | --testrules} [--magic PATH] [--minscore SCORE] [--maxsize BYTES] [-j THREADS] [--rule TEXT ...] [--format FORMAT] [--output PATH] [--upload s3://BUCKET/KEY]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scans folders with YARA rules and reports matching files",
	Long: `Scans every regular file under the given folders with a set of YARA rules.

RULES is a rule file, a folder with *.yar/*.yara files, a git repository URL
or an http(s) URL of a rule file. Rules can use the external variables
filepath, filename, extension, filetype and owner.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		lg.Error("invalid scan arguments", "error", err)
		return errors.NewCommandError(fmt.Errorf("invalid scan arguments: %w", err), 1)
	}
	applyConfigDefaults(&scanOptions, cmd.Flags(), AppConfig)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	printer := console.NewPrinter()
	defer printer.Close()

	return execute(ctx, lg, printer, &scanOptions)
}

// Initialize flags for the scan command.
func init() {
	ScanCmd.Flags().StringSliceVarP(&scanOptions.Folders, "folder", "f", nil, "Folder to scan. Repeat to scan several folders.")
	ScanCmd.Flags().BoolVar(&scanOptions.TestRules, "testrules", false, "Test the rules for syntax validity and then exit.")
	ScanCmd.Flags().StringVar(&scanOptions.Magic, "magic", config.DefaultMagic, "Path of the file signature table, relative to the rules path unless absolute.")
	ScanCmd.Flags().Int64Var(&scanOptions.MinScore, "minscore", config.DefaultMinScore, "Only matches with at least this score are reported.")
	ScanCmd.Flags().Int64Var(&scanOptions.MaxSize, "maxsize", config.DefaultMaxSize, "Only files up to this size in bytes are scanned. 0 disables the limit.")
	ScanCmd.Flags().IntVarP(&scanOptions.Threads, "threads", "j", config.DefaultThreads(), "Number of concurrent scan workers.")
	ScanCmd.Flags().StringArrayVar(&scanOptions.InlineRules, "rule", nil, "Additional rule text. Repeat to add several rules.")
	ScanCmd.Flags().StringVar(&scanOptions.Branch, "branch", "", "Branch to check out when RULES is a git repository.")
	ScanCmd.Flags().StringVar(&scanOptions.Format, "format", config.DefaultFormat, "Report format: json, jsonl, sarif, markdown or html.")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputPath, "output", "o", "", "File or folder to write the combined report to.")
	ScanCmd.Flags().StringVar(&scanOptions.Upload, "upload", "", "Upload the written report to s3://BUCKET/KEY. Requires --output.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
	ScanCmd.MarkFlagsMutuallyExclusive("folder", "testrules")
}
