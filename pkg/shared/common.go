package shared

import (
	"github.com/spf13/pflag"
)

// Versions holds build information of the binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// HasFlags reports whether any flag of the set was given on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	hasFlags := false
	flags.Visit(func(*pflag.Flag) {
		hasFlags = true
	})
	return hasFlags
}
