package cmd

import (
	"errors"
	"time"

	"github.com/gnolang/goinline/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
)

// errExpansionFailed is returned once the failures have been reported.
var errExpansionFailed = errors.New("some files could not be expanded")

var rootCmd = &cobra.Command{
	Use:              "goinline [paths...]",
	Short:            "goinline - expand inline macros in Go and Gno sources",
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// no subcommand
		if len(args) == 0 {
			return cmd.Help()
		}
		// Format: goinline [path1 path2 ...] => behaves like the expand subcommand
		return expandCmd.RunE(cmd, args)
	},
}

// Execute runs the command line. Failures have already been reported when
// the returned error is non-nil.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "Path to the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Set a timeout for the expansion")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(macrosCmd)
	rootCmd.AddCommand(watchCmd)
}
