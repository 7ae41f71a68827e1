package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "0.4.0"

var (
	homeDir    string
	configPath string
	verbose    bool

	logger = zap.NewNop()

	// RootCmd is the root command for aiprune
	RootCmd = &cobra.Command{
		Use:   "aiprune",
		Short: "Find and switch off the AI features built into Windows 11",
		Long: `aiprune detects the AI features that ship with Windows 11 (Copilot,
Recall, AI Explorer, Bing search and more), switches them off through
registry policies, Appx package removal and optional features, and keeps
them off when a Windows update turns them back on.

Quick Start:
  1. aiprune status            # see what is on
  2. aiprune backup create     # save the current registry values
  3. aiprune disable --all     # switch everything off
  4. aiprune baseline save     # remember the result
  5. aiprune watch             # restore anything an update re-enables

Most commands that change the system must be run from an elevated
(administrator) prompt.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogger,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "aiprune: keep Windows 11 AI features switched off")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'aiprune status' to see which features are enabled.")
			fmt.Fprintln(out, "Run 'aiprune --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "data directory (default: $AIPRUNE_HOME or the user config dir)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default: <home>/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// newLogger builds the diagnostic logger. Tests replace it.
var newLogger = func(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func setupLogger(cmd *cobra.Command, args []string) error {
	l, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	return nil
}
