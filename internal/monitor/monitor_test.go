package monitor

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/detector"
	"github.com/blackwell-systems/aiprune/internal/manager"
	"github.com/blackwell-systems/aiprune/internal/pwsh"
	"github.com/blackwell-systems/aiprune/internal/registry"
	"github.com/blackwell-systems/aiprune/internal/snapshots"
	"github.com/blackwell-systems/aiprune/internal/store"
)

const policyPath = `SOFTWARE\Policies\Test`

type fakeHistory struct {
	runs   []*store.CheckRun
	events [][]store.DriftEvent
}

func (h *fakeHistory) InsertCheckRun(run *store.CheckRun, events []store.DriftEvent) error {
	h.runs = append(h.runs, run)
	h.events = append(h.events, events)
	return nil
}

// countingDisabler wraps a manager and counts Disable calls per feature.
type countingDisabler struct {
	*manager.Manager
	calls map[string]int
}

func (c *countingDisabler) Disable(ctx context.Context, f *catalog.Feature) manager.Result {
	c.calls[f.ID]++
	return c.Manager.Disable(ctx, f)
}

type env struct {
	reg     *registry.Memory
	mgr     *countingDisabler
	snaps   *snapshots.Store
	log     *activity.Log
	history *fakeHistory
	mon     *Monitor
}

func feature(id string, enabled, disabled uint32) catalog.Feature {
	return catalog.Feature{
		ID:   id,
		Name: strings.ToUpper(id),
		Toggles: []catalog.Toggle{catalog.RegistryToggle{
			Scope:         catalog.ScopeMachine,
			Path:          policyPath,
			Name:          id,
			EnabledValue:  enabled,
			DisabledValue: disabled,
		}},
	}
}

func newEnv(t *testing.T, features ...catalog.Feature) *env {
	t.Helper()
	cat, err := catalog.New(features)
	require.NoError(t, err)

	dir := t.TempDir()
	log, err := activity.Open(filepath.Join(dir, "logs"))
	require.NoError(t, err)

	e := &env{
		reg:     registry.NewMemory(),
		snaps:   snapshots.New(filepath.Join(dir, snapshots.FileName), "1.0.0", nil),
		log:     log,
		history: &fakeHistory{},
	}
	e.mgr = &countingDisabler{
		Manager: manager.New(manager.Config{Registry: e.reg, Activity: log}),
		calls:   make(map[string]int),
	}
	det := detector.New(cat, e.reg, pwsh.NewFake(), pwsh.NewFake(), nil)
	e.mon = New(Config{
		Detector:  det,
		Manager:   e.mgr,
		Snapshots: e.snaps,
		History:   e.history,
		Activity:  log,
	})
	return e
}

func TestReenabledFeatureIsRestored(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	snap, ok := e.snaps.Load()
	require.True(t, ok)
	assert.Equal(t, catalog.StatusDisabled, snap.Services["f"].Status)

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	report := e.mon.CheckForChanges(ctx)
	require.Equal(t, 1, report.Total())
	c := report.Changes[0]
	assert.Equal(t, "f", c.ID)
	assert.Equal(t, catalog.StatusDisabled, c.Previous)
	assert.Equal(t, catalog.StatusEnabled, c.Current)
	assert.True(t, c.WasReenabled())
	assert.True(t, report.HasReenabled())
	assert.False(t, report.SnapshotTime.IsZero())

	res := e.mon.AutoRestore(ctx, report.Changes)
	assert.Equal(t, 1, res.Restored)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"f"}, res.RestoredIDs)

	v, _ := e.reg.Get(catalog.ScopeMachine, policyPath, "f")
	assert.Equal(t, uint32(1), v)

	entries := e.log.ForFeature("f", 0)
	require.NotEmpty(t, entries)
	assert.Equal(t, activity.ActionAutoRestore, entries[0].Action)
}

func TestAutoRestoreIgnoresOtherChanges(t *testing.T) {
	e := newEnv(t, feature("a", 0, 1), feature("b", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "a", 0)
	e.reg.Set(catalog.ScopeMachine, policyPath, "b", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	e.reg.Set(catalog.ScopeMachine, policyPath, "a", 1)
	e.reg.Set(catalog.ScopeMachine, policyPath, "b", 0)

	report := e.mon.CheckForChanges(ctx)
	assert.Equal(t, 2, report.Total())
	assert.Len(t, report.Reenabled, 1)
	assert.Len(t, report.Other, 1)

	res := e.mon.AutoRestore(ctx, report.Changes)
	assert.Equal(t, 1, res.Restored)
	assert.Equal(t, 1, e.mgr.calls["b"])
	assert.Zero(t, e.mgr.calls["a"], "a feature the user turned off must not be touched")
}

func TestAutoRestoreWithoutChangesChecksFirst(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))
	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	res := e.mon.AutoRestore(ctx, nil)
	assert.Equal(t, 1, res.Restored)
}

func TestAutoRestoreUnknownFeatureFails(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))

	res := e.mon.AutoRestore(context.Background(), []snapshots.Change{
		{ID: "gone", Name: "Gone", Previous: catalog.StatusDisabled, Current: catalog.StatusEnabled},
	})
	assert.Equal(t, 0, res.Restored)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"Feature not found: gone"}, res.Messages)
}

func TestAutoRestoreReportsDisableFailure(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))
	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)
	e.reg.Deny(catalog.ScopeMachine, policyPath, "f")

	res := e.mon.AutoRestore(ctx, nil)
	assert.Equal(t, 0, res.Restored)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Messages, 1)
	assert.True(t, strings.HasPrefix(res.Messages[0], "Failed: F - "), res.Messages[0])
}

func TestRestoreTwiceIsIdempotent(t *testing.T) {
	e := newEnv(t, feature("a", 0, 1), feature("b", 1, 0), feature("c", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "a", 1)
	e.reg.Set(catalog.ScopeMachine, policyPath, "b", 0)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	e.reg.Set(catalog.ScopeMachine, policyPath, "a", 0)
	e.reg.Set(catalog.ScopeMachine, policyPath, "b", 1)

	first := e.mon.AutoRestore(ctx, nil)
	assert.Equal(t, 2, first.Restored)

	second := e.mon.AutoRestore(ctx, nil)
	assert.Equal(t, 0, second.Restored)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, 1, e.mgr.calls["a"])
	assert.Equal(t, 1, e.mgr.calls["b"])

	require.NoError(t, e.mon.SaveCurrentState(ctx))
	assert.True(t, e.mon.CheckForChanges(ctx).Empty())
}

func TestNoBaselineMeansNoChanges(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))

	assert.False(t, e.mon.HasBaseline())
	report := e.mon.CheckForChanges(context.Background())
	assert.True(t, report.Empty())
	assert.True(t, report.SnapshotTime.IsZero())
	assert.Equal(t, "No changes detected since last baseline.", report.Summary())
}

func TestAcceptCurrentStateKeepsUpdateChanges(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))
	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	require.NoError(t, e.mon.AcceptCurrentState(ctx))
	assert.True(t, e.mon.CheckForChanges(ctx).Empty())

	snap, _ := e.snaps.Load()
	assert.Equal(t, catalog.StatusEnabled, snap.Services["f"].Status)
}

func TestReportSummary(t *testing.T) {
	r := &Report{
		Changes: []snapshots.Change{
			{ID: "a", Name: "Alpha", Previous: catalog.StatusDisabled, Current: catalog.StatusEnabled},
			{ID: "b", Name: "Beta", Previous: catalog.StatusEnabled, Current: catalog.StatusNotInstalled},
		},
	}
	r.Reenabled = r.Changes[:1]
	r.Other = r.Changes[1:]

	want := "1 feature(s) were re-enabled:\n  - Alpha\n1 feature(s) changed otherwise:\n  - Beta (enabled -> not_installed)"
	assert.Equal(t, want, r.Summary())
}
