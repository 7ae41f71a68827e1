package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExitRestoreFailed is the exit code of 'maintain' when drift could not
// be undone.
const ExitRestoreFailed = 2

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one silent maintenance cycle",
	Long: `Run one maintenance cycle without prompts, for use from Task Scheduler
or a logon script:

  1. create a baseline if none exists
  2. otherwise check for drift
  3. disable re-enabled features again (auto_restore)
  4. refresh the baseline after a clean restore (save_after_restore)
  5. prune activity logs and history past logs.retention_days

Exit status is 0 on success and 2 when any feature could not be restored.`,
	Example: `  schtasks /Create /TN aiprune /SC ONLOGON /RL HIGHEST /TR "aiprune maintain"`,
	Args:    cobra.NoArgs,
	RunE:    runMaintain,
}

func init() {
	RootCmd.AddCommand(maintainCmd)
}

func runMaintain(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome := rt.monitor.Reconcile(cmd.Context(), rt.policy("maintain"))
	printOutcome(cmd.OutOrStdout(), outcome, false)

	rt.prune()

	if outcome.Failed() {
		err := outcome.Err
		if err == nil {
			err = fmt.Errorf("%d feature(s) could not be restored", outcome.Restore.Failed)
		}
		return &ExitError{Code: ExitRestoreFailed, Err: err}
	}
	return nil
}

// prune drops activity logs and history older than the retention period.
// Failures are logged only.
func (rt *session) prune() {
	days := rt.settings.Logs.RetentionDays
	if days <= 0 {
		return
	}
	if n, err := rt.activity.Prune(days); err != nil {
		rt.logger.Warn("failed to prune activity logs", zap.Error(err))
	} else if n > 0 {
		rt.logger.Debug("pruned activity logs", zap.Int("files", n))
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	if n, err := rt.history.PruneCheckRuns(cutoff); err != nil {
		rt.logger.Warn("failed to prune history", zap.Error(err))
	} else if n > 0 {
		rt.logger.Debug("pruned check runs", zap.Int64("runs", n))
	}
}
