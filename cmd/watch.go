package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gnolang/goinline/formatter"
	"github.com/gnolang/goinline/inliner"
)

var watchOutDir string

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Expand files again whenever they change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := inliner.New(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		w := inliner.NewWatcher(engine, logger, args, watchOutDir)
		w.OnOutput = watchReporter(cmd.OutOrStdout(), cmd.ErrOrStderr())
		return w.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutDir, "out", "o", "", "Directory receiving the expanded files (check only when empty)")
}

func watchReporter(stdout, stderr io.Writer) func(string, *inliner.Output, error) {
	return func(path string, out *inliner.Output, err error) {
		if err != nil {
			report := formatter.FromError(err)
			printReports(stderr, []formatter.Report{report}, report.Pos.Filename)
			return
		}
		if len(out.Diagnostics) > 0 {
			printReports(stderr, reportsFromDiagnostics(out), path)
		}
		fmt.Fprintf(stdout, "%s: expanded %d call(s)\n", path, out.Expansions)
	}
}
