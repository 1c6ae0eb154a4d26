package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/apiwarden/apiwarden"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "apiwarden %s\n", apiwarden.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "  go:       %s\n", runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
