package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status [feature]",
	Short: "Show which AI features are enabled",
	Long: `Probe every known AI feature and show whether it is enabled, disabled,
not installed, or could not be determined.

Registry policies are read first. Features controlled only by an Appx
package or an optional Windows feature are checked through PowerShell,
which can take several seconds.

With a feature id, show that feature's toggle points in detail.`,
	Example: `  aiprune status
  aiprune status copilot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if len(args) == 1 {
		features, err := rt.resolveFeatures(args)
		if err != nil {
			return err
		}
		st, _ := rt.detector.Refresh(ctx, features[0].ID)
		rt.activity.Detection(st.ID(), st.Name(), string(st.Status))
		fmt.Fprint(out, output.RenderFeatureDetail(st))
		return nil
	}

	spinner := output.NewSpinner("Detecting AI features")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	states := rt.detector.DetectAll(ctx)
	spinner.Stop()

	for _, st := range states {
		rt.activity.Detection(st.ID(), st.Name(), string(st.Status))
	}

	fmt.Fprint(out, output.RenderStatusTable(states))
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.RenderStatusSummary(states))

	if ts, ok := rt.snapshots.Timestamp(); ok {
		fmt.Fprintf(out, "Baseline:     saved %s\n", ts.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(out, "Baseline:     none (run 'aiprune baseline save')")
	}
	if latest, ok := rt.manager.LatestBackup(); ok {
		fmt.Fprintf(out, "Last backup:  %s\n", latest.Name)
	}
	return nil
}
