package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/openfluke/wgcompute/kernels"
	"github.com/openfluke/wgcompute/logging"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Pick demos from a numbered menu, reusing one device",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, release, err := openDispatcher()
		if err != nil {
			return err
		}
		defer release()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runMenu(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), d, kernels.Names())
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

// parseChoice turns a menu line into a 0-based index into n entries.
func parseChoice(line string, n int) (idx int, quit bool, err error) {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "q", "quit", "exit":
		return 0, true, nil
	case "":
		return 0, false, errors.New("enter a number or q")
	}
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > n {
		return 0, false, errors.Errorf("choose 1-%d or q", n)
	}
	return i - 1, false, nil
}

// runMenu reads choices until q or end of input. A failed demo is reported and the
// menu is shown again.
func runMenu(ctx context.Context, in io.Reader, out io.Writer, d kernels.Dispatcher, names []string) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, renderMenu(names))
		fmt.Fprint(out, promptStyle.Render("> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		idx, quit, err := parseChoice(sc.Text(), len(names))
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, errStyle.Render(err.Error()))
			continue
		}
		r, err := kernels.Run(ctx, d, names[idx])
		if err != nil {
			logging.Warnf("demo %s failed: %v", names[idx], err)
			fmt.Fprintln(out, errStyle.Render("error: "+err.Error()))
			continue
		}
		fmt.Fprint(out, renderResult(r, false, nil))
	}
}
