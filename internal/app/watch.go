package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/monitor"
	"github.com/blackwell-systems/aiprune/internal/output"
	"github.com/blackwell-systems/aiprune/internal/watcher"
)

var (
	watchInterval string
	watchQuiet    bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Keep features off in the foreground until interrupted",
		Long: `Run the maintenance cycle (see 'aiprune maintain') once at start, then on
every watch.interval and shortly after Windows Update activity settles in
the watch.update_paths directories.

Activity is printed as it happens. Stop with Ctrl+C.

To run unattended, register 'aiprune watch' or 'aiprune maintain' with
Task Scheduler.`,
		Example: `  aiprune watch
  aiprune watch --interval 30m`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "override watch.interval (e.g. 30m, 2h)")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "only print drift and failures")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := openSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	interval := rt.settings.Watch.Interval
	if watchInterval != "" {
		d, err := parsePositiveDuration(watchInterval)
		if err != nil {
			return fmt.Errorf("invalid --interval: %w", err)
		}
		interval = d
	}

	out := cmd.OutOrStdout()

	unsubscribe := rt.bus.Subscribe(func(e activity.Entry) {
		if watchQuiet && e.Level != activity.LevelWarning && e.Level != activity.LevelError {
			return
		}
		if e.Action == activity.ActionDetection {
			return
		}
		fmt.Fprintf(out, "%s  %-12s %s\n", e.Timestamp, e.Action, e.Message)
	})
	defer unsubscribe()

	w, err := watcher.New(rt.monitor, watcher.Config{
		Interval:    interval,
		Debounce:    rt.settings.Watch.Debounce,
		UpdatePaths: rt.settings.Watch.UpdatePaths,
		Policy:      rt.policy("watch"),
		Logger:      rt.logger,
		OnOutcome: func(o *monitor.Outcome) {
			if o.Failed() {
				fmt.Fprintln(out, output.Failure(o.Summary()))
			}
			rt.prune()
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "Watching for drift every %s. Press Ctrl+C to stop.\n", interval)
	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Fprintf(out, "\nStopped after %d check(s).\n", stats.Passes)
	return nil
}
