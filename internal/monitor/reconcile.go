package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/store"
)

// Policy controls what Reconcile does about drift.
type Policy struct {
	// AutoRestore disables re-enabled features again.
	AutoRestore bool
	// SaveAfterRestore refreshes the baseline after a clean restore.
	SaveAfterRestore bool
	// Source labels the run in history ("check", "restore", "maintain", "watch").
	Source string
}

// Outcome describes one Reconcile run.
type Outcome struct {
	RunID           string
	BaselineCreated bool
	Report          *Report
	Restore         *RestoreResult
	BaselineSaved   bool
	Err             error
}

// Failed reports whether the run hit an error or could not restore a
// feature.
func (o *Outcome) Failed() bool {
	return o.Err != nil || (o.Restore != nil && o.Restore.Failed > 0)
}

// Summary renders the outcome in one or more lines.
func (o *Outcome) Summary() string {
	if o.BaselineCreated {
		return "No baseline found; baseline created from current state."
	}
	if o.Report == nil {
		return "Check did not run."
	}
	s := o.Report.Summary()
	if o.Restore != nil {
		s += fmt.Sprintf("\nRestored %d feature(s), %d failed.", o.Restore.Restored, o.Restore.Failed)
	}
	if o.BaselineSaved {
		s += "\nBaseline updated."
	}
	return s
}

// Reconcile runs one maintenance cycle. Without a baseline it saves the
// current state and stops. Otherwise it checks for drift, restores
// re-enabled features when the policy allows, and refreshes the baseline
// only when every restore succeeded and re-detects as disabled. A failed
// restore keeps the drift visible to the next run. An unreadable baseline
// is treated as missing and rebuilt.
func (m *Monitor) Reconcile(ctx context.Context, p Policy) *Outcome {
	out := &Outcome{RunID: m.newID()}
	started := m.now()

	if _, ok := m.snapshots.Load(); !ok {
		if m.HasBaseline() {
			m.logger.Warn("baseline unreadable, recreating it", zap.String("path", m.snapshots.Path()))
			m.activity.Log(activity.LevelWarning, activity.ActionBaseline, activity.SystemID, "System",
				"Baseline was unreadable and has been recreated from current state", map[string]any{"source": p.Source})
		}
		if err := m.SaveCurrentState(ctx); err != nil {
			out.Err = fmt.Errorf("failed to create baseline: %w", err)
		} else {
			out.BaselineCreated = true
		}
		m.record(p, started, out)
		return out
	}

	out.Report = m.CheckForChanges(ctx)
	if !out.Report.Empty() {
		m.activity.Log(levelFor(out.Report), activity.ActionCheck, activity.SystemID, "System",
			fmt.Sprintf("%d change(s) detected, %d re-enabled", out.Report.Total(), len(out.Report.Reenabled)),
			map[string]any{"source": p.Source})
	}

	if out.Report.HasReenabled() && p.AutoRestore {
		out.Restore = m.AutoRestore(ctx, out.Report.Reenabled)
		m.verifyRestored(ctx, out.Restore)

		if out.Restore.Restored > 0 && out.Restore.Failed == 0 && p.SaveAfterRestore {
			if err := m.SaveCurrentState(ctx); err != nil {
				out.Err = fmt.Errorf("failed to refresh baseline: %w", err)
			} else {
				out.BaselineSaved = true
			}
		}
	}

	m.record(p, started, out)
	return out
}

// verifyRestored re-detects every restored feature. A disable that wrote
// some toggle points but left the feature reading anything other than
// Disabled counts as a failure, so the baseline never absorbs it.
func (m *Monitor) verifyRestored(ctx context.Context, res *RestoreResult) {
	kept := res.RestoredIDs[:0]
	for _, id := range res.RestoredIDs {
		st, ok := m.detector.Refresh(ctx, id)
		if ok && st.Status == catalog.StatusDisabled {
			kept = append(kept, id)
			continue
		}

		res.Restored--
		res.Failed++
		name := id
		status := "unknown"
		if ok {
			name = st.Name()
			status = string(st.Status)
		}
		res.Messages = append(res.Messages, fmt.Sprintf("Failed: %s - still %s after disabling", name, status))
		m.logger.Warn("restore did not take effect", zap.String("feature", id), zap.String("status", status))
	}
	res.RestoredIDs = kept
}

func levelFor(r *Report) activity.Level {
	if r.HasReenabled() {
		return activity.LevelWarning
	}
	return activity.LevelInfo
}

// record writes the run to history. History failures are logged only.
func (m *Monitor) record(p Policy, started time.Time, out *Outcome) {
	if m.history == nil {
		return
	}

	run := &store.CheckRun{
		ID:              out.RunID,
		StartedAt:       started,
		Source:          p.Source,
		BaselineCreated: out.BaselineCreated,
		BaselineSaved:   out.BaselineSaved,
	}
	if out.Err != nil {
		run.Error = out.Err.Error()
	}

	var events []store.DriftEvent
	if out.Report != nil {
		run.TotalChanges = out.Report.Total()
		run.Reenabled = len(out.Report.Reenabled)

		restored := make(map[string]bool)
		if out.Restore != nil {
			run.Restored = out.Restore.Restored
			run.Failed = out.Restore.Failed
			for _, id := range out.Restore.RestoredIDs {
				restored[id] = true
			}
		}

		for _, c := range out.Report.Changes {
			events = append(events, store.DriftEvent{
				RunID:       out.RunID,
				FeatureID:   c.ID,
				FeatureName: c.Name,
				Previous:    string(c.Previous),
				Current:     string(c.Current),
				Reenabled:   c.WasReenabled(),
				Restored:    restored[c.ID],
			})
		}
	}

	if err := m.history.InsertCheckRun(run, events); err != nil {
		m.logger.Warn("failed to record check run", zap.String("run", run.ID), zap.Error(err))
	}
}
