package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/config"
	"github.com/blackwell-systems/aiprune/internal/detector"
	"github.com/blackwell-systems/aiprune/internal/events"
	"github.com/blackwell-systems/aiprune/internal/manager"
	"github.com/blackwell-systems/aiprune/internal/monitor"
	"github.com/blackwell-systems/aiprune/internal/pwsh"
	"github.com/blackwell-systems/aiprune/internal/registry"
	"github.com/blackwell-systems/aiprune/internal/snapshots"
	"github.com/blackwell-systems/aiprune/internal/store"
)

// system is everything aiprune asks PowerShell to do.
type system interface {
	ListPackages(ctx context.Context) ([]string, error)
	RemovePackage(ctx context.Context, identifier string) error
	FeatureState(ctx context.Context, name string) (pwsh.FeatureState, error)
	SetFeatureState(ctx context.Context, name string, enabled bool) error
}

// newBackends returns the live registry and PowerShell client. Tests
// replace it with in-memory fakes.
var newBackends = func(s *config.Settings) (registry.Registry, system) {
	return registry.NewSystem(), pwsh.New(nil, pwsh.Timeouts{
		PackageQuery:  s.Timeouts.PackageQuery,
		PackageRemove: s.Timeouts.PackageRemove,
		FeatureToggle: s.Timeouts.FeatureToggle,
	})
}

// session is the composition root shared by every command.
type session struct {
	paths    config.Paths
	settings *config.Settings
	logger   *zap.Logger

	catalog   *catalog.Catalog
	bus       *events.Bus[activity.Entry]
	activity  *activity.Log
	history   *store.Store
	snapshots *snapshots.Store
	detector  *detector.Detector
	manager   *manager.Manager
	monitor   *monitor.Monitor
}

// openSession resolves the data directory, loads settings and wires the
// components. The caller must Close it.
func openSession() (*session, error) {
	root := homeDir
	if root == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		root = dir
	}
	paths := config.Paths{Root: root}
	if err := os.MkdirAll(paths.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfgFile := configPath
	if cfgFile == "" {
		cfgFile = paths.Config()
	}
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	rt := &session{
		paths:    paths,
		settings: settings,
		logger:   logger,
		catalog:  catalog.Default(),
		bus:      events.NewBus[activity.Entry](),
	}

	rt.activity, err = activity.Open(paths.Logs(), activity.WithBus(rt.bus), activity.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	rt.history, err = store.Open(paths.History())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	reg, sys := newBackends(settings)

	rt.snapshots = snapshots.New(paths.Snapshot(), Version, logger)
	rt.detector = detector.New(rt.catalog, reg, sys, sys, logger)
	rt.manager = manager.New(manager.Config{
		Registry:  reg,
		Packages:  sys,
		Features:  sys,
		BackupDir: paths.Backups(),
		Activity:  rt.activity,
		Index:     rt.history,
		Logger:    logger,
	})
	rt.monitor = monitor.New(monitor.Config{
		Detector:  rt.detector,
		Manager:   rt.manager,
		Snapshots: rt.snapshots,
		History:   rt.history,
		Activity:  rt.activity,
		Logger:    logger,
	})
	return rt, nil
}

// Close releases the history database.
func (rt *session) Close() error {
	return rt.history.Close()
}

// policy builds the reconcile policy from settings.
func (rt *session) policy(source string) monitor.Policy {
	return monitor.Policy{
		AutoRestore:      rt.settings.AutoRestore,
		SaveAfterRestore: rt.settings.SaveAfterRestore,
		Source:           source,
	}
}

// resolveFeatures maps command arguments (ids or aliases) to features,
// keeping argument order and dropping repeats.
func (rt *session) resolveFeatures(args []string) ([]*catalog.Feature, error) {
	var (
		features []*catalog.Feature
		unknown  []string
		seen     = make(map[string]bool)
	)
	for _, arg := range args {
		id := rt.settings.Resolve(strings.ToLower(arg))
		f, ok := rt.catalog.Lookup(id)
		if !ok {
			unknown = append(unknown, arg)
			continue
		}
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		features = append(features, f)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown feature(s): %s\n\nRun 'aiprune status' to list feature ids", strings.Join(unknown, ", "))
	}
	return features, nil
}

// featureNames maps feature ids to display names.
func (rt *session) featureNames() map[string]string {
	names := make(map[string]string, rt.catalog.Len())
	for _, f := range rt.catalog.Features() {
		names[f.ID] = f.Name
	}
	return names
}
