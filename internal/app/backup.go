package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/errdefs"
	"github.com/blackwell-systems/aiprune/internal/output"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Save and restore the registry values aiprune changes",
		Long: `Backups record the raw value of every registry toggle point, so a
disable can be rolled back exactly. 'aiprune disable' creates one
automatically.

Appx packages and optional features are not part of a backup.`,
	}

	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Back up the current registry values",
		Args:  cobra.NoArgs,
		RunE:  runBackupCreate,
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE:  runBackupList,
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore [path | latest]",
		Short: "Write the values in a backup back to the registry",
		Example: `  aiprune backup restore latest
  aiprune backup restore %APPDATA%\aiprune\backups\backup_20260102_030405.json`,
		Args: cobra.ExactArgs(1),
		RunE: runBackupRestore,
	}
)

func init() {
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
	RootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	path, err := rt.manager.CreateBackup(rt.catalog.Features())
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output.Success("Backup saved to "+path))
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	backups, err := rt.manager.ListBackups()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderBackupTable(backups))
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	path := args[0]
	if strings.EqualFold(path, "latest") {
		latest, ok := rt.manager.LatestBackup()
		if !ok {
			return fmt.Errorf("no backups available\n\nRun 'aiprune backup create' to create one")
		}
		path = latest.Path
		fmt.Fprintf(out, "Using latest backup: %s\n", latest.Name)
	}

	restored, err := rt.manager.RestoreBackup(path)
	switch {
	case errdefs.IsNotFound(err) && restored == 0:
		return fmt.Errorf("backup %s not found\n\nRun 'aiprune backup list' to see available backups", path)
	case errdefs.IsMalformed(err):
		return fmt.Errorf("backup %s is corrupt: %w", path, err)
	case err != nil:
		fmt.Fprintln(out, output.Warning(fmt.Sprintf("Restored %d registry value(s) with errors:", restored)))
		return err
	}

	fmt.Fprintln(out, output.Success(fmt.Sprintf("Restored %d registry value(s).", restored)))
	fmt.Fprintln(out, "Run 'aiprune baseline save' if this is the state you want to keep.")
	return nil
}
