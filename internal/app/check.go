package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/monitor"
	"github.com/blackwell-systems/aiprune/internal/output"
)

var (
	checkRestore bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Compare the current state with the saved baseline",
		Long: `Detect every feature and compare the result with the saved baseline.

Features that were disabled in the baseline but are enabled now were most
likely switched back on by a Windows update; they are flagged. Pass
--restore to disable them again right away.

If no baseline exists yet, one is created from the current state.`,
		Example: `  aiprune check
  aiprune check --restore`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Disable again every feature that was re-enabled",
		Long: `Check for drift and disable again every feature that is enabled now but
was disabled in the baseline. Other changes are reported and left alone.

When every restore succeeds and save_after_restore is set in config.yaml,
the baseline is refreshed.`,
		Args: cobra.NoArgs,
		RunE: runRestore,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkRestore, "restore", false, "disable re-enabled features again")

	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(restoreCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	p := rt.policy("check")
	p.AutoRestore = checkRestore
	return reconcileAndReport(cmd, rt, p)
}

func runRestore(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	p := rt.policy("restore")
	p.AutoRestore = true
	return reconcileAndReport(cmd, rt, p)
}

func reconcileAndReport(cmd *cobra.Command, rt *session, p monitor.Policy) error {
	out := cmd.OutOrStdout()

	spinner := output.NewSpinner("Checking for changes")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	outcome := rt.monitor.Reconcile(cmd.Context(), p)
	spinner.Stop()

	printOutcome(out, outcome, true)
	if outcome.Err != nil {
		return outcome.Err
	}
	if outcome.Restore != nil && outcome.Restore.Failed > 0 {
		return fmt.Errorf("%d feature(s) could not be restored", outcome.Restore.Failed)
	}
	return nil
}

// printOutcome writes a reconcile outcome. With table set the changes are
// rendered as a table ahead of the summary.
func printOutcome(w io.Writer, o *monitor.Outcome, table bool) {
	if o.BaselineCreated {
		fmt.Fprintln(w, o.Summary())
		return
	}
	if o.Report == nil {
		fmt.Fprintln(w, output.Failure(o.Summary()))
		return
	}

	if table && !o.Report.Empty() {
		if !o.Report.SnapshotTime.IsZero() {
			fmt.Fprintf(w, "Baseline from %s\n\n", o.Report.SnapshotTime.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Fprint(w, output.RenderChanges(o.Report.Changes))
		fmt.Fprintln(w)
	}

	switch {
	case o.Report.HasReenabled() && o.Restore == nil:
		fmt.Fprintln(w, output.Warning(o.Summary()))
		fmt.Fprintln(w, "\nRun 'aiprune restore' to disable them again, or 'aiprune baseline accept' to keep them.")
	case o.Failed():
		fmt.Fprintln(w, output.Failure(o.Summary()))
	default:
		fmt.Fprintln(w, o.Summary())
	}

	if o.Restore != nil {
		for _, msg := range o.Restore.Messages {
			fmt.Fprintln(w, "  "+msg)
		}
	}
}
