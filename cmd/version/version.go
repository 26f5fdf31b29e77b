package version

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/yarascan/pkg/shared"
	"github.com/scan-io-git/yarascan/pkg/shared/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// CoreVersions holds version information of the binary and the YARA bindings.
type CoreVersions struct {
	Versions      shared.Versions `json:"versions"`
	EngineVersion string          `json:"engine_version"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the YARA bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := CoreVersions{
				Versions: shared.Versions{
					Version:       CoreVersion,
					GolangVersion: GolangVersion,
					BuildTime:     BuildTime,
				},
				EngineVersion: engineVersion(),
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(version)
			}
			printVersionInfo(os.Stdout, &version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the version information as JSON.")
	return cmd
}

const engineModule = "github.com/hillu/go-yara/v4"

// engineVersion returns the version of the YARA bindings linked into the binary.
func engineVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == engineModule {
			return strings.TrimPrefix(dep.Version, "v")
		}
	}
	return "unknown"
}

// printVersionInfo prints the version information.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintf(w, "YARA Bindings: v%s\n", versions.EngineVersion)
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
