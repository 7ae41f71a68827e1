package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/manager"
	"github.com/blackwell-systems/aiprune/internal/output"
)

var (
	disableAll      bool
	disableNoBackup bool
	enableAll       bool

	disableCmd = &cobra.Command{
		Use:   "disable [feature...]",
		Short: "Switch AI features off",
		Long: `Switch one or more AI features off at every toggle point: registry
policy values are written, Appx packages are removed and optional Windows
features are disabled.

A registry backup is created first unless --no-backup is given, so the
change can be undone with 'aiprune backup restore latest'.

Features can be named by id or by an alias from config.yaml.`,
		Example: `  aiprune disable copilot recall
  aiprune disable --all`,
		RunE: runDisable,
	}

	enableCmd = &cobra.Command{
		Use:   "enable [feature...]",
		Short: "Switch AI features back on",
		Long: `Switch one or more AI features back on by writing the enabled registry
values and enabling optional Windows features.

Removed Appx packages are not reinstalled; reinstall them from the
Microsoft Store.`,
		Example: `  aiprune enable bing_search
  aiprune enable --all`,
		RunE: runEnable,
	}
)

func init() {
	disableCmd.Flags().BoolVar(&disableAll, "all", false, "disable every known feature")
	disableCmd.Flags().BoolVar(&disableNoBackup, "no-backup", false, "skip the registry backup")
	enableCmd.Flags().BoolVar(&enableAll, "all", false, "enable every known feature")

	RootCmd.AddCommand(disableCmd)
	RootCmd.AddCommand(enableCmd)
}

func runDisable(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args, disableAll, false)
}

func runEnable(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args, enableAll, true)
}

func runToggle(cmd *cobra.Command, args []string, all, enable bool) error {
	if all == (len(args) > 0) {
		return fmt.Errorf("name one or more features, or pass --all")
	}

	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	features := rt.catalog.Features()
	if !all {
		features, err = rt.resolveFeatures(args)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	if !enable && !disableNoBackup {
		path, err := rt.manager.CreateBackup(features)
		if err != nil {
			return fmt.Errorf("failed to create backup (use --no-backup to skip): %w", err)
		}
		fmt.Fprintf(out, "Backup saved to %s\n\n", path)
	}

	results := applyAll(cmd, rt, features, enable)
	fmt.Fprint(out, output.RenderResults(results, rt.featureNames()))

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("no feature could be changed")
	}
	if failed > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, output.Warning(fmt.Sprintf("%d of %d feature(s) could not be changed.", failed, len(results))))
	}
	return nil
}

// applyAll runs the operation feature by feature so progress can be shown.
func applyAll(cmd *cobra.Command, rt *session, features []*catalog.Feature, enable bool) []manager.Result {
	verb := "Disabling"
	if enable {
		verb = "Enabling"
	}

	progress := output.NewProgress(len(features), verb+" features")
	progress.SetWriter(cmd.ErrOrStderr())

	results := make([]manager.Result, 0, len(features))
	for _, f := range features {
		progress.Step(f.Name)
		if enable {
			results = append(results, rt.manager.Enable(cmd.Context(), f))
		} else {
			results = append(results, rt.manager.Disable(cmd.Context(), f))
		}
	}
	if len(features) > 1 {
		progress.Finish()
	}
	return results
}
