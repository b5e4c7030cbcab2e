package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gnolang/goinline/formatter"
	"github.com/gnolang/goinline/inliner"
)

var macrosJSONOutput bool

var macrosCmd = &cobra.Command{
	Use:   "macros [paths...]",
	Short: "List the macros declared in files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := inliner.New(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}
		return runMacros(cmd.OutOrStdout(), cmd.ErrOrStderr(), engine, args, macrosJSONOutput)
	},
}

func init() {
	macrosCmd.Flags().BoolVar(&macrosJSONOutput, "json", false, "Output macros in JSON format")
}

// macroEntry is the listed form of a macro.
type macroEntry struct {
	File   string   `json:"file"`
	Line   int      `json:"line"`
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Shape  string   `json:"shape"`
	Expr   bool     `json:"expr"`
}

func runMacros(stdout, stderr io.Writer, engine inliner.ExpandEngine, paths []string, isJSON bool) error {
	files, err := inliner.CollectFiles(paths, engine.Extensions())
	if err != nil {
		return err
	}

	entries := make([]macroEntry, 0)
	failures := 0
	for _, file := range files {
		summaries, err := engine.Macros(file, nil)
		if err != nil {
			failures++
			report := formatter.FromError(err)
			printReports(stderr, []formatter.Report{report}, report.Pos.Filename)
			continue
		}
		for _, s := range summaries {
			entries = append(entries, macroEntry{
				File:   file,
				Line:   s.Pos.Line,
				Name:   s.Name,
				Params: s.Params,
				Shape:  s.Shape.String(),
				Expr:   s.Expr,
			})
		}
	}

	if isJSON {
		d, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(d))
	} else {
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			shape := e.Shape
			if e.Expr {
				shape += ", expr"
			}
			fmt.Fprintf(tw, "%s:%d\t%s(%s)\t%s\n", e.File, e.Line, e.Name, strings.Join(e.Params, ", "), shape)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d failure(s)", errExpansionFailed, failures)
	}
	return nil
}
