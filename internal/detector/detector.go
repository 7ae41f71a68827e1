// Package detector works out whether each catalog feature is currently on
// or off by probing its toggle points.
//
// Sources are consulted in a fixed priority order and the first conclusive
// one wins: registry values, then installed packages, then optional
// features. Probe failures are never returned; the worst outcome for a
// feature is catalog.StatusUnknown.
package detector

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
	"github.com/blackwell-systems/aiprune/internal/pwsh"
	"github.com/blackwell-systems/aiprune/internal/registry"
)

// Packages lists installed Appx package names.
type Packages interface {
	ListPackages(ctx context.Context) ([]string, error)
}

// OptionalFeatures queries Windows optional feature state.
type OptionalFeatures interface {
	FeatureState(ctx context.Context, name string) (pwsh.FeatureState, error)
}

// Detector owns one State per catalog feature and refreshes them on demand.
type Detector struct {
	reg      registry.Registry
	packages Packages
	features OptionalFeatures
	logger   *zap.Logger

	mu     sync.Mutex
	states []*catalog.State
	byID   map[string]*catalog.State
}

// New returns a Detector over every feature in cat. All states start as
// catalog.StatusUnknown until the first DetectAll.
func New(cat *catalog.Catalog, reg registry.Registry, packages Packages, features OptionalFeatures, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Detector{
		reg:      reg,
		packages: packages,
		features: features,
		logger:   logger,
		byID:     make(map[string]*catalog.State, cat.Len()),
	}
	for _, f := range cat.Features() {
		st := &catalog.State{Feature: f, Status: catalog.StatusUnknown}
		d.states = append(d.states, st)
		d.byID[f.ID] = st
	}
	return d
}

// DetectAll probes every feature and returns the updated states in catalog
// order. The installed package list is fetched at most once per call.
func (d *Detector) DetectAll(ctx context.Context) []*catalog.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &probe{d: d}
	for _, st := range d.states {
		st.Status = p.status(ctx, st.Feature)
	}
	return append([]*catalog.State(nil), d.states...)
}

// Refresh re-probes a single feature, leaving the others untouched. It
// returns false when id is not in the catalog.
func (d *Detector) Refresh(ctx context.Context, id string) (*catalog.State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	p := &probe{d: d}
	st.Status = p.status(ctx, st.Feature)
	return st, true
}

// States returns the most recently detected states without probing.
func (d *Detector) States() []*catalog.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*catalog.State(nil), d.states...)
}

// Lookup returns the live state for id.
func (d *Detector) Lookup(id string) (*catalog.State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.byID[id]
	return st, ok
}

// probe carries per-pass caches.
type probe struct {
	d *Detector

	listed   bool
	packages []string
	listErr  error
}

func (p *probe) status(ctx context.Context, f *catalog.Feature) catalog.Status {
	if regs := f.RegistryToggles(); len(regs) > 0 {
		return p.registryStatus(f, regs)
	}

	if pkgs := f.PackageToggles(); len(pkgs) > 0 {
		if st := p.packageStatus(ctx, f, pkgs); st != catalog.StatusUnknown {
			return st
		}
	}

	for _, t := range f.OptionalFeatureToggles() {
		if st := p.optionalFeatureStatus(ctx, f, t); st != catalog.StatusUnknown {
			return st
		}
	}

	return catalog.StatusUnknown
}

// registryStatus returns the verdict of the first toggle whose value equals
// one of its constants. When no toggle is conclusive the Windows default
// applies, which is enabled.
func (p *probe) registryStatus(f *catalog.Feature, toggles []catalog.RegistryToggle) catalog.Status {
	for _, t := range toggles {
		v, err := p.d.reg.ReadDWORD(t.Scope, t.Path, t.Name)
		if err != nil {
			p.d.logger.Debug("registry probe failed",
				zap.String("feature", f.ID), zap.Stringer("toggle", t), zap.Error(err))
			continue
		}
		switch v {
		case t.DisabledValue:
			return catalog.StatusDisabled
		case t.EnabledValue:
			return catalog.StatusEnabled
		}
		p.d.logger.Debug("registry value matches neither constant",
			zap.String("feature", f.ID), zap.Stringer("toggle", t), zap.Uint32("value", v))
	}
	return catalog.StatusEnabled
}

func (p *probe) packageStatus(ctx context.Context, f *catalog.Feature, toggles []catalog.PackageToggle) catalog.Status {
	if p.d.packages == nil {
		return catalog.StatusUnknown
	}
	if !p.listed {
		p.packages, p.listErr = p.d.packages.ListPackages(ctx)
		p.listed = true
	}
	if p.listErr != nil {
		p.d.logger.Debug("package probe failed", zap.String("feature", f.ID), zap.Error(p.listErr))
		return catalog.StatusUnknown
	}

	for _, t := range toggles {
		needle := strings.ToLower(t.Identifier)
		for _, name := range p.packages {
			if strings.Contains(strings.ToLower(name), needle) {
				return catalog.StatusEnabled
			}
		}
	}
	return catalog.StatusNotInstalled
}

func (p *probe) optionalFeatureStatus(ctx context.Context, f *catalog.Feature, t catalog.OptionalFeatureToggle) catalog.Status {
	if p.d.features == nil {
		return catalog.StatusUnknown
	}
	state, err := p.d.features.FeatureState(ctx, t.Name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return catalog.StatusNotInstalled
		}
		p.d.logger.Debug("optional feature probe failed",
			zap.String("feature", f.ID), zap.String("name", t.Name), zap.Error(err))
		return catalog.StatusUnknown
	}
	if state == pwsh.FeatureEnabled {
		return catalog.StatusEnabled
	}
	return catalog.StatusDisabled
}
