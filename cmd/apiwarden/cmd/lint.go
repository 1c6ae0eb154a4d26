package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apiwarden/apiwarden/contract"
)

var lintCmd = &cobra.Command{
	Use:   "lint <contract>",
	Short: "Load a contract and report its structural problems",
	Long: `Load a contract file and report every structural problem found:
malformed path templates, invalid parameter locations, unknown schema
types, bad patterns, and invalid response status codes. Loading is
all-or-nothing, so a contract that lints clean is exactly what serve
and check will accept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLint(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, path string) error {
	doc, err := contract.LoadFile(path)
	if err != nil {
		var loadErr *contract.LoadError
		if errors.As(err, &loadErr) {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %d problem(s):\n", path, len(loadErr.Diagnostics))
			for _, d := range loadErr.Diagnostics {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", d)
			}
			return fmt.Errorf("contract has %d problem(s)", len(loadErr.Diagnostics))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d path(s), %d operation(s), %d schema(s)\n",
		path, len(doc.Paths), doc.OperationCount(), len(doc.Schemas))
	return nil
}
