package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/openfluke/wgcompute/kernels"
	"github.com/openfluke/wgcompute/logging"
)

var runCmd = &cobra.Command{
	Use:   "run [demo...]",
	Short: "Run demos on one device (all of them when none are named)",
	Example: `  wgcompute run
  wgcompute run saxpy transpose --verify`,
	RunE: runDemos,
}

func init() {
	runCmd.Flags().Bool("verify", false, "compare every result with the host reference")
	rootCmd.AddCommand(runCmd)
}

func runDemos(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = kernels.Names()
	}
	for _, name := range names {
		if _, ok := kernels.Lookup(name); !ok {
			return errors.Errorf("unknown demo: %s (see wgcompute list)", name)
		}
	}
	verify := cfg.Dispatch.Verify
	if cmd.Flags().Changed("verify") {
		verify, _ = cmd.Flags().GetBool("verify")
	}

	d, release, err := openDispatcher()
	if err != nil {
		return err
	}
	defer release()

	err = runAll(cmd.Context(), cmd.OutOrStdout(), d, names, verify)
	s := d.Stats()
	logging.Infof("%d dispatches, %d failed, %d/%d buffers released", s.Dispatches, s.Failures, s.BuffersReleased, s.BuffersAllocated)
	return err
}

// runAll runs each demo in order on d, stopping at the first failure.
func runAll(ctx context.Context, out io.Writer, d kernels.Dispatcher, names []string, verify bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, name := range names {
		r, err := kernels.Run(ctx, d, name)
		if err != nil {
			return err
		}
		var verr error
		if verify {
			verr = r.Verify()
		}
		fmt.Fprint(out, renderResult(r, verify, verr))
		if verr != nil {
			return verr
		}
	}
	return nil
}
