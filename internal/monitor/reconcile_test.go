package monitor

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
)

var restorePolicy = Policy{AutoRestore: true, SaveAfterRestore: true, Source: "maintain"}

func TestReconcileCreatesBaselineOnFirstRun(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	e.mon.newID = func() string { return "run-1" }

	out := e.mon.Reconcile(context.Background(), restorePolicy)

	assert.True(t, out.BaselineCreated)
	assert.False(t, out.Failed())
	assert.Nil(t, out.Report)
	assert.True(t, e.mon.HasBaseline())
	assert.Contains(t, out.Summary(), "baseline created")

	require.Len(t, e.history.runs, 1)
	assert.Equal(t, "run-1", e.history.runs[0].ID)
	assert.True(t, e.history.runs[0].BaselineCreated)
	assert.Equal(t, "maintain", e.history.runs[0].Source)
}

func TestReconcileRestoresAndRefreshesBaseline(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1), feature("g", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	e.reg.Set(catalog.ScopeMachine, policyPath, "g", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	out := e.mon.Reconcile(ctx, restorePolicy)

	require.NotNil(t, out.Report)
	assert.Equal(t, 1, out.Report.Total())
	require.NotNil(t, out.Restore)
	assert.Equal(t, 1, out.Restore.Restored)
	assert.True(t, out.BaselineSaved)
	assert.False(t, out.Failed())

	v, _ := e.reg.Get(catalog.ScopeMachine, policyPath, "f")
	assert.Equal(t, uint32(1), v)

	require.Len(t, e.history.runs, 1)
	run := e.history.runs[0]
	assert.Equal(t, 1, run.Reenabled)
	assert.Equal(t, 1, run.Restored)
	assert.True(t, run.BaselineSaved)
	require.Len(t, e.history.events[0], 1)
	assert.True(t, e.history.events[0][0].Restored)
	assert.Equal(t, "disabled", e.history.events[0][0].Previous)

	again := e.mon.Reconcile(ctx, restorePolicy)
	assert.True(t, again.Report.Empty())
	assert.Nil(t, again.Restore)
	assert.Equal(t, 1, e.mgr.calls["f"])
}

func TestReconcileWithoutAutoRestoreOnlyReports(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))
	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	out := e.mon.Reconcile(ctx, Policy{Source: "check"})

	assert.True(t, out.Report.HasReenabled())
	assert.Nil(t, out.Restore)
	assert.False(t, out.BaselineSaved)
	assert.Zero(t, e.mgr.calls["f"])

	v, _ := e.reg.Get(catalog.ScopeMachine, policyPath, "f")
	assert.Equal(t, uint32(0), v)
}

func TestReconcileFailedRestoreKeepsBaseline(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1), feature("g", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	e.reg.Set(catalog.ScopeMachine, policyPath, "g", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)
	e.reg.Set(catalog.ScopeMachine, policyPath, "g", 0)
	e.reg.Deny(catalog.ScopeMachine, policyPath, "g")

	out := e.mon.Reconcile(ctx, restorePolicy)

	assert.True(t, out.Failed())
	assert.Equal(t, 1, out.Restore.Restored)
	assert.Equal(t, 1, out.Restore.Failed)
	assert.False(t, out.BaselineSaved, "baseline must not absorb drift that could not be restored")

	snap, _ := e.snaps.Load()
	assert.Equal(t, catalog.StatusDisabled, snap.Services["g"].Status)
	assert.Equal(t, 1, e.history.runs[0].Failed)
}

func TestReconcileWithoutSaveAfterRestore(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))
	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)

	out := e.mon.Reconcile(ctx, Policy{AutoRestore: true, Source: "watch"})
	assert.Equal(t, 1, out.Restore.Restored)
	assert.False(t, out.BaselineSaved)
}

func TestReconcileWithoutHistory(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	e.mon.history = nil

	out := e.mon.Reconcile(context.Background(), restorePolicy)
	assert.True(t, out.BaselineCreated)
}

func TestReconcilePartialRestoreKeepsBaseline(t *testing.T) {
	f := feature("r", 0, 1)
	f.Toggles = append(f.Toggles, catalog.RegistryToggle{
		Scope:         catalog.ScopeUser,
		Path:          policyPath,
		Name:          "r",
		EnabledValue:  0,
		DisabledValue: 1,
	})
	e := newEnv(t, f)
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "r", 1)
	e.reg.Set(catalog.ScopeUser, policyPath, "r", 1)
	require.NoError(t, e.mon.SaveCurrentState(ctx))

	e.reg.Set(catalog.ScopeMachine, policyPath, "r", 0)
	e.reg.DenyWrite(catalog.ScopeMachine, policyPath, "r")

	out := e.mon.Reconcile(ctx, restorePolicy)

	require.NotNil(t, out.Restore)
	assert.Equal(t, 0, out.Restore.Restored)
	assert.Equal(t, 1, out.Restore.Failed)
	assert.Empty(t, out.Restore.RestoredIDs)
	assert.True(t, out.Failed())
	assert.False(t, out.BaselineSaved)

	snap, ok := e.snaps.Load()
	require.True(t, ok)
	assert.Equal(t, catalog.StatusDisabled, snap.Services["r"].Status)

	require.Len(t, e.history.events[0], 1)
	assert.False(t, e.history.events[0][0].Restored)
	assert.Equal(t, 1, e.history.runs[0].Failed)

	again := e.mon.Reconcile(ctx, restorePolicy)
	assert.True(t, again.Report.HasReenabled(), "drift must stay visible while the restore keeps failing")
}

func TestReconcileRebuildsCorruptBaseline(t *testing.T) {
	e := newEnv(t, feature("f", 0, 1))
	ctx := context.Background()

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 1)
	require.NoError(t, os.WriteFile(e.snaps.Path(), []byte("{not json"), 0644))

	out := e.mon.Reconcile(ctx, restorePolicy)

	assert.True(t, out.BaselineCreated)
	assert.False(t, out.Failed())
	snap, ok := e.snaps.Load()
	require.True(t, ok)
	assert.Equal(t, catalog.StatusDisabled, snap.Services["f"].Status)

	var warned bool
	for _, entry := range e.log.ForFeature(activity.SystemID, 0) {
		if entry.Action == activity.ActionBaseline && entry.Level == activity.LevelWarning {
			warned = true
		}
	}
	assert.True(t, warned, "corrupt baseline should be logged as a warning")

	e.reg.Set(catalog.ScopeMachine, policyPath, "f", 0)
	again := e.mon.Reconcile(ctx, restorePolicy)
	assert.False(t, again.BaselineCreated)
	require.NotNil(t, again.Report)
	assert.True(t, again.Report.HasReenabled())
	assert.Equal(t, 1, again.Restore.Restored)
}
