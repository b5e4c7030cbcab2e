package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/goinline/formatter"
	"github.com/gnolang/goinline/inliner"
	"github.com/gnolang/goinline/internal/source"
)

// expandMode selects what happens with an expansion.
type expandMode int

const (
	modePrint expandMode = iota
	modeDiff
	modeWrite
)

// variable for flags
var (
	showDiff   bool
	writeFiles bool
)

var formatDiff = formatter.FormatDiff

var expandCmd = &cobra.Command{
	Use:   "expand [paths...]",
	Short: "Expand the macros of files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := selectMode(showDiff, writeFiles)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := inliner.New(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}

		return runExpand(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger, engine, args, mode)
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, expandCmd} {
		c.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff instead of the expanded source")
		c.Flags().BoolVarP(&writeFiles, "write", "w", false, "Write the expansion back to the source files")
	}
}

func selectMode(diff, write bool) (expandMode, error) {
	switch {
	case diff && write:
		return modePrint, errors.New("--diff and --write cannot be used together")
	case diff:
		return modeDiff, nil
	case write:
		return modeWrite, nil
	}
	return modePrint, nil
}

func runExpand(
	ctx context.Context,
	stdout, stderr io.Writer,
	logger *zap.Logger,
	engine inliner.ExpandEngine,
	paths []string,
	mode expandMode,
) error {
	processor := inliner.ExpandFile
	if mode == modeWrite {
		processor = inliner.WriteFile
	}

	outputs, err := inliner.ProcessFiles(ctx, logger, engine, paths, processor)

	var renderErrs []error
	for _, out := range outputs {
		if len(out.Diagnostics) > 0 {
			printReports(stderr, reportsFromDiagnostics(out), out.Filename)
		}

		switch mode {
		case modePrint:
			if len(outputs) > 1 {
				fmt.Fprintf(stdout, "// %s\n", out.Filename)
			}
			_, _ = stdout.Write(out.Expanded)
		case modeDiff:
			diff, derr := formatDiff(out.Filename, out.Original, out.Expanded)
			if derr != nil {
				renderErrs = append(renderErrs, fmt.Errorf("error rendering diff for %s: %w", out.Filename, derr))
				continue
			}
			fmt.Fprint(stdout, diff)
		}
	}

	if mode == modeWrite {
		changed, expansions := 0, 0
		for _, out := range outputs {
			if out.Changed() {
				changed++
			}
			expansions += out.Expansions
		}
		fmt.Fprintf(stdout, "expanded %d call(s) in %d file(s)\n", expansions, changed)
	}

	if len(renderErrs) > 0 {
		err = errors.Join(append([]error{err}, renderErrs...)...)
	}
	if err != nil {
		failures := flattenErrors(err)
		for _, ferr := range failures {
			report := formatter.FromError(ferr)
			printReports(stderr, []formatter.Report{report}, report.Pos.Filename)
		}
		return fmt.Errorf("%w: %d failure(s)", errExpansionFailed, len(failures))
	}
	return nil
}

func reportsFromDiagnostics(out *inliner.Output) []formatter.Report {
	reports := make([]formatter.Report, 0, len(out.Diagnostics))
	for _, d := range out.Diagnostics {
		reports = append(reports, formatter.FromDiagnostic(d))
	}
	return reports
}

// printReports renders reports with the source of filename when it can be read.
func printReports(w io.Writer, reports []formatter.Report, filename string) {
	var code *source.Code
	if filename != "" {
		code, _ = source.ReadCode(filename)
	}
	fmt.Fprint(w, formatter.FormatReports(reports, code))
}

// flattenErrors unpacks errors joined by errors.Join, depth first.
func flattenErrors(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var errs []error
	for _, e := range joined.Unwrap() {
		errs = append(errs, flattenErrors(e)...)
	}
	return errs
}
