package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/output"
	"github.com/blackwell-systems/aiprune/internal/store"
)

var (
	logFeature string
	logLimit   int

	historyLimit int
	historyDrift bool

	logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show the activity log",
		Long: `Show what aiprune did, newest first: detections, enable and disable
operations, backups, restores and baseline changes. Entries are kept in
one JSON file per day under the logs directory.`,
		Example: `  aiprune log
  aiprune log --feature copilot --limit 20`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show past drift checks",
		Long: `Show every recorded drift check (from check, restore, maintain and watch)
with what it found and what it did about it.

Use --drift to see which features Windows turned back on most often.`,
		Example: `  aiprune history
  aiprune history --drift`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
)

func init() {
	logCmd.Flags().StringVar(&logFeature, "feature", "", "only show entries for this feature")
	logCmd.Flags().IntVar(&logLimit, "limit", 50, "maximum number of entries")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs")
	historyCmd.Flags().BoolVar(&historyDrift, "drift", false, "summarize re-enabled features instead of listing runs")

	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(historyCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	if logLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	featureID := ""
	if logFeature != "" {
		features, err := rt.resolveFeatures([]string{logFeature})
		if err != nil {
			return err
		}
		featureID = features[0].ID
	}
	entries := rt.activity.Recent(featureID, logLimit)
	fmt.Fprint(cmd.OutOrStdout(), output.RenderActivityTable(entries))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	if historyDrift {
		drift, err := rt.history.ReenabledByFeature()
		if err != nil {
			return err
		}
		rows := make([]store.FeatureDrift, len(drift))
		for i, d := range drift {
			rows[i] = *d
		}
		fmt.Fprint(out, output.RenderDriftTable(rows))
		return nil
	}

	runs, err := rt.history.ListCheckRuns(historyLimit)
	if err != nil {
		return err
	}
	rows := make([]store.CheckRun, len(runs))
	for i, r := range runs {
		rows[i] = *r
	}
	fmt.Fprint(out, output.RenderHistoryTable(rows))
	return nil
}
