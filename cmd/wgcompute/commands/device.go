package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfluke/wgcompute/detector"
	"github.com/openfluke/wgcompute/gpu"
)

var deviceJSON bool

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Show the selected adapter and its compute limits",
	RunE:  runDevice,
}

func init() {
	deviceCmd.Flags().BoolVar(&deviceJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(deviceCmd)
}

func runDevice(cmd *cobra.Command, args []string) error {
	c, err := gpu.Acquire(cfg.GPUOptions())
	if err != nil {
		return err
	}
	defer c.Release()

	rep, err := detector.Detect(c)
	if err != nil {
		return err
	}
	if deviceJSON {
		s, err := rep.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderReport(rep))
	return nil
}
