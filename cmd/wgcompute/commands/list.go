package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfluke/wgcompute/kernels"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bundled demos",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), renderDemoList(kernels.Names()))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
