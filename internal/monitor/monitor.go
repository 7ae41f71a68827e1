// Package monitor reconciles live feature state against the saved baseline.
// It finds features an OS update switched back on and disables them again.
//
// A Monitor keeps no state of its own between calls. Every operation
// re-detects the system and re-reads the baseline, so a process restart
// between checks loses nothing.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/manager"
	"github.com/blackwell-systems/aiprune/internal/snapshots"
	"github.com/blackwell-systems/aiprune/internal/store"
)

// Detector probes the live system.
type Detector interface {
	DetectAll(ctx context.Context) []*catalog.State
	Lookup(id string) (*catalog.State, bool)
	Refresh(ctx context.Context, id string) (*catalog.State, bool)
}

// Disabler switches a feature off.
type Disabler interface {
	Disable(ctx context.Context, f *catalog.Feature) manager.Result
}

// History records completed reconcile runs.
type History interface {
	InsertCheckRun(run *store.CheckRun, events []store.DriftEvent) error
}

// Config wires a Monitor. Detector, Manager and Snapshots are required.
type Config struct {
	Detector  Detector
	Manager   Disabler
	Snapshots *snapshots.Store
	History   History
	Activity  *activity.Log
	Logger    *zap.Logger
}

// Monitor drives the check, classify and restore cycle.
type Monitor struct {
	detector  Detector
	manager   Disabler
	snapshots *snapshots.Store
	history   History
	activity  *activity.Log
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a Monitor from cfg.
func New(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		detector:  cfg.Detector,
		manager:   cfg.Manager,
		snapshots: cfg.Snapshots,
		history:   cfg.History,
		activity:  cfg.Activity,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Report is the result of comparing live state with the baseline.
type Report struct {
	Changes      []snapshots.Change
	Reenabled    []snapshots.Change
	Other        []snapshots.Change
	SnapshotTime time.Time
}

// Total is the number of changed features.
func (r *Report) Total() int { return len(r.Changes) }

// HasReenabled reports whether any feature was switched back on.
func (r *Report) HasReenabled() bool { return len(r.Reenabled) > 0 }

// Empty reports whether nothing changed.
func (r *Report) Empty() bool { return len(r.Changes) == 0 }

// Summary renders the report for the user.
func (r *Report) Summary() string {
	if r.Empty() {
		return "No changes detected since last baseline."
	}

	var lines []string
	if len(r.Reenabled) > 0 {
		lines = append(lines, fmt.Sprintf("%d feature(s) were re-enabled:", len(r.Reenabled)))
		for _, c := range r.Reenabled {
			lines = append(lines, "  - "+c.Name)
		}
	}
	if len(r.Other) > 0 {
		lines = append(lines, fmt.Sprintf("%d feature(s) changed otherwise:", len(r.Other)))
		for _, c := range r.Other {
			lines = append(lines, fmt.Sprintf("  - %s (%s -> %s)", c.Name, c.Previous, c.Current))
		}
	}
	return strings.Join(lines, "\n")
}

// CheckForChanges detects every feature and diffs the result against the
// baseline. Without a baseline the report is empty.
func (m *Monitor) CheckForChanges(ctx context.Context) *Report {
	states := m.detector.DetectAll(ctx)

	report := &Report{}
	snap, ok := m.snapshots.Load()
	if !ok {
		return report
	}
	report.SnapshotTime = snap.Time()
	report.Changes = snapshots.Diff(snap, states)

	for _, c := range report.Changes {
		if c.WasReenabled() {
			report.Reenabled = append(report.Reenabled, c)
		} else {
			report.Other = append(report.Other, c)
		}
	}

	m.logger.Debug("drift check complete",
		zap.Int("changes", report.Total()),
		zap.Int("reenabled", len(report.Reenabled)))
	return report
}

// RestoreResult tallies an auto-restore pass.
type RestoreResult struct {
	Restored    int
	Failed      int
	Messages    []string
	RestoredIDs []string
}

// AutoRestore disables again every feature whose change is a
// re-enablement. With nil changes it runs CheckForChanges first. Changes of
// any other kind are left alone.
func (m *Monitor) AutoRestore(ctx context.Context, changes []snapshots.Change) *RestoreResult {
	if changes == nil {
		changes = m.CheckForChanges(ctx).Reenabled
	}

	res := &RestoreResult{}
	for _, c := range changes {
		if !c.WasReenabled() {
			continue
		}

		st, ok := m.detector.Lookup(c.ID)
		if !ok {
			res.Failed++
			res.Messages = append(res.Messages, "Feature not found: "+c.ID)
			continue
		}

		r := m.manager.Disable(ctx, st.Feature)
		if !r.OK() {
			res.Failed++
			res.Messages = append(res.Messages, fmt.Sprintf("Failed: %s - %s", st.Name(), r.Message()))
			continue
		}

		res.Restored++
		res.RestoredIDs = append(res.RestoredIDs, c.ID)
		res.Messages = append(res.Messages, "Restored: "+st.Name())
		m.activity.AutoRestore(c.ID, st.Name(), "Disabled again after it was re-enabled externally")
	}
	return res
}

// SaveCurrentState re-detects every feature and replaces the baseline.
// Call it after the user changes settings on purpose.
func (m *Monitor) SaveCurrentState(ctx context.Context) error {
	return m.saveBaseline(ctx, "Baseline saved")
}

// AcceptCurrentState makes the current state the new baseline, keeping
// whatever an update changed. It behaves exactly like SaveCurrentState.
func (m *Monitor) AcceptCurrentState(ctx context.Context) error {
	return m.saveBaseline(ctx, "Baseline saved")
}

func (m *Monitor) saveBaseline(ctx context.Context, msg string) error {
	states := m.detector.DetectAll(ctx)
	if err := m.snapshots.Save(states); err != nil {
		return err
	}
	m.activity.Baseline(msg, len(states))
	return nil
}

// HasBaseline reports whether a baseline exists to compare against.
func (m *Monitor) HasBaseline() bool {
	return m.snapshots.Exists()
}
