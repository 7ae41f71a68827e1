package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/monitor"
)

// Reconciler runs one maintenance pass.
type Reconciler interface {
	Reconcile(ctx context.Context, p monitor.Policy) *monitor.Outcome
}

// Config controls the loop.
type Config struct {
	Interval    time.Duration
	Debounce    time.Duration
	UpdatePaths []string
	Policy      monitor.Policy
	Logger      *zap.Logger
	// OnOutcome, if set, is called after every pass.
	OnOutcome func(*monitor.Outcome)
}

// Stats counts loop activity.
type Stats struct {
	Passes        int
	FileEvents    int
	WatchedPaths  int
	LastPass      time.Time
	LastEventPath string
}

// Watcher schedules reconcile passes.
type Watcher struct {
	rec    Reconciler
	cfg    Config
	logger *zap.Logger
	fs     *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stats   Stats
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Watcher. It does not start watching until Start.
func New(rec Reconciler, cfg Config) (*Watcher, error) {
	if rec == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		rec:    rec,
		cfg:    cfg,
		logger: logger,
		fs:     fs,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start runs the first pass synchronously, then continues in a goroutine.
// Update paths that cannot be watched are logged and skipped. A Watcher
// can be started once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	watched := 0
	for _, p := range w.cfg.UpdatePaths {
		if err := w.fs.Add(p); err != nil {
			w.logger.Warn("cannot watch update path", zap.String("path", p), zap.Error(err))
			continue
		}
		watched++
	}
	w.mu.Lock()
	w.stats.WatchedPaths = watched
	w.mu.Unlock()

	w.pass(ctx)

	go w.run(ctx)
	return nil
}

// Stop halts the loop, waits for an in-flight pass, and releases the file
// watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.fs.Close(); err != nil {
		w.logger.Warn("error closing file watcher", zap.Error(err))
	}
}

// Run starts the loop and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Stats returns a copy of the loop counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case <-ticker.C:
			w.pass(ctx)

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.FileEvents++
			w.stats.LastEventPath = ev.Name
			w.mu.Unlock()
			w.logger.Debug("update activity", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			if w.cfg.Debounce <= 0 {
				w.pass(ctx)
				continue
			}
			debounce = time.After(w.cfg.Debounce)

		case <-debounce:
			debounce = nil
			w.pass(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) pass(ctx context.Context) {
	out := w.rec.Reconcile(ctx, w.cfg.Policy)

	w.mu.Lock()
	w.stats.Passes++
	w.stats.LastPass = time.Now()
	w.mu.Unlock()

	if out != nil && out.Failed() {
		w.logger.Warn("maintenance pass failed", zap.String("run", out.RunID), zap.Error(out.Err))
	}
	if w.cfg.OnOutcome != nil && out != nil {
		w.cfg.OnOutcome(out)
	}
}
