package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/yarascan/cmd/scan"
	"github.com/scan-io-git/yarascan/cmd/version"
	"github.com/scan-io-git/yarascan/internal/console"
	"github.com/scan-io-git/yarascan/pkg/shared/config"
	yerrors "github.com/scan-io-git/yarascan/pkg/shared/errors"
)

const defaultConfigFile = "config.yml"

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "yarascan [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Yarascan scans file trees with YARA rules.",
		Long: `Yarascan evaluates every file of one or more folders against a set of YARA rules
	with a pool of workers, enriches the evaluation with file metadata and reports scored matches.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml when present)")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatError(err, console.ColorEnabled()))

		var cmdErr *yerrors.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.ExitCode
		}
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	required := cfgFile != ""
	if cfgFile == "" {
		cfgFile = defaultConfigFile
	}
	AppConfig, err = config.LoadConfig(cfgFile, required)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	scan.Init(AppConfig)
	version.Init(AppConfig)
}
