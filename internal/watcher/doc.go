// Package watcher runs the drift maintenance loop in the foreground.
//
// A reconcile pass runs once at start, then on every tick of the configured
// interval. Windows Update's working directories are also watched with
// fsnotify; a burst of file activity there schedules an extra pass once it
// has been quiet for the debounce period, so drift introduced by an update
// is caught soon after the update finishes.
//
// Example usage:
//
//	w, err := watcher.New(mon, watcher.Config{
//		Interval:    6 * time.Hour,
//		Debounce:    2 * time.Minute,
//		UpdatePaths: settings.Watch.UpdatePaths,
//		Policy:      monitor.Policy{AutoRestore: true, SaveAfterRestore: true, Source: "watch"},
//	})
//	if err != nil {
//		return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	return w.Run(ctx)
package watcher
