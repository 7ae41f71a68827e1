package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/output"
	"github.com/blackwell-systems/aiprune/internal/profile"
)

var (
	importPreset      string
	importDryRun      bool
	importListPresets bool

	exportCmd = &cobra.Command{
		Use:   "export <file>",
		Short: "Write the current feature states to a profile file",
		Long: `Detect every feature and write the result to a JSON profile that can be
applied on another machine with 'aiprune import'.`,
		Example: `  aiprune export my-settings.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runExport,
	}

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Apply a profile file or a built-in preset",
		Long: `Bring every feature to the status recorded in a profile, enabling or
disabling only what differs. Entries that are not installed or unknown in
the profile are ignored, as are feature ids this version does not know.

Built-in presets:
  privacy_max  disable every feature
  balanced     disable Copilot, Recall and AI Explorer; keep search
  reset        enable every feature`,
		Example: `  aiprune import my-settings.json
  aiprune import --preset balanced
  aiprune import --preset privacy_max --dry-run
  aiprune import --list-presets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}
)

func init() {
	importCmd.Flags().StringVar(&importPreset, "preset", "", "apply a built-in preset instead of a file")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would change without changing it")
	importCmd.Flags().BoolVar(&importListPresets, "list-presets", false, "list the built-in presets")

	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	states := rt.detector.DetectAll(cmd.Context())
	if err := profile.Export(args[0], Version, states); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output.Success(fmt.Sprintf("Exported %d feature(s) to %s", len(states), args[0])))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if importListPresets {
		fmt.Fprint(out, output.RenderPresetTable(profile.Presets()))
		return nil
	}
	if (importPreset == "") == (len(args) == 0) {
		return fmt.Errorf("give either a profile file or --preset")
	}

	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	var desired profile.Desired
	if importPreset != "" {
		p, ok := profile.LookupPreset(importPreset)
		if !ok {
			return fmt.Errorf("unknown preset %q\n\nRun 'aiprune import --list-presets' to see them", importPreset)
		}
		desired = p.Resolve(rt.catalog.Features())
		fmt.Fprintf(out, "Preset: %s\n", p.Name)
	} else {
		desired, err = profile.Import(args[0])
		if err != nil {
			return err
		}
	}

	states := rt.detector.DetectAll(cmd.Context())
	actions := profile.Plan(states, desired)
	fmt.Fprint(out, output.RenderPlan(actions))

	if importDryRun || len(actions) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	var toEnable, toDisable []*catalog.Feature
	for _, a := range actions {
		if a.Enable {
			toEnable = append(toEnable, a.Feature)
		} else {
			toDisable = append(toDisable, a.Feature)
		}
	}

	if len(toDisable) > 0 {
		if path, err := rt.manager.CreateBackup(toDisable); err == nil {
			fmt.Fprintf(out, "Backup saved to %s\n", path)
		} else {
			fmt.Fprintln(out, output.Warning("Backup failed: "+err.Error()))
		}
	}

	results := rt.manager.DisableAll(cmd.Context(), toDisable)
	results = append(results, rt.manager.EnableAll(cmd.Context(), toEnable)...)
	fmt.Fprint(out, output.RenderResults(results, rt.featureNames()))

	for _, r := range results {
		if !r.OK() {
			return fmt.Errorf("profile applied with errors")
		}
	}
	return nil
}
