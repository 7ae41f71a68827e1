package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/output"
)

var (
	baselineCmd = &cobra.Command{
		Use:   "baseline",
		Short: "Manage the saved baseline drift is measured against",
		Long: `The baseline records the status of every feature at a point in time.
'aiprune check' and 'aiprune watch' compare the live state with it.

Save a new baseline after changing features on purpose. Accept the current
state when a Windows update changed something you want to keep.`,
	}

	baselineSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Record the current state as the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaselineSave(cmd, false)
		},
	}

	baselineAcceptCmd = &cobra.Command{
		Use:   "accept",
		Short: "Accept the current state, including any drift, as the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaselineSave(cmd, true)
		},
	}

	baselineDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete the baseline",
		Args:  cobra.NoArgs,
		RunE:  runBaselineDelete,
	}

	baselineShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the recorded baseline",
		Args:  cobra.NoArgs,
		RunE:  runBaselineShow,
	}
)

func init() {
	baselineCmd.AddCommand(baselineSaveCmd, baselineAcceptCmd, baselineDeleteCmd, baselineShowCmd)
	RootCmd.AddCommand(baselineCmd)
}

func runBaselineSave(cmd *cobra.Command, accept bool) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	save := rt.monitor.SaveCurrentState
	if accept {
		save = rt.monitor.AcceptCurrentState
	}
	if err := save(cmd.Context()); err != nil {
		return fmt.Errorf("failed to save baseline: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), output.Success(fmt.Sprintf("Baseline saved to %s", rt.snapshots.Path())))
	return nil
}

func runBaselineDelete(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.snapshots.Exists() {
		fmt.Fprintln(cmd.OutOrStdout(), "No baseline to delete.")
		return nil
	}
	if err := rt.snapshots.Delete(); err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Baseline deleted.")
	return nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	snap, ok := rt.snapshots.Load()
	if !ok {
		fmt.Fprintln(out, "No baseline saved. Run 'aiprune baseline save' to create one.")
		return nil
	}

	fmt.Fprintf(out, "Baseline:  %s\n", rt.snapshots.Path())
	if t := snap.Time(); !t.IsZero() {
		fmt.Fprintf(out, "Saved:     %s\n", t.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Version:   %s\n\n", snap.Meta.Version)

	// Catalog order first, then anything the catalog no longer knows.
	var states []*catalog.State
	seen := make(map[string]bool)
	for _, f := range rt.catalog.Features() {
		if e, ok := snap.Services[f.ID]; ok {
			states = append(states, &catalog.State{Feature: f, Status: e.Status})
			seen[f.ID] = true
		}
	}
	var extra []string
	for id := range snap.Services {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		e := snap.Services[id]
		states = append(states, &catalog.State{Feature: &catalog.Feature{ID: id, Name: e.Name}, Status: e.Status})
	}

	fmt.Fprint(out, output.RenderStatusTable(states))
	return nil
}
