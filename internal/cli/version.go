package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mnemod %s (commit: %s)\n", Version, Commit)
	},
}

// VersionString returns the version for health responses and logs.
func VersionString() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
