// Package manager switches catalog features on and off by writing their
// toggle points, and keeps raw registry backups for exact rollback.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/activity"
	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
	"github.com/blackwell-systems/aiprune/internal/registry"
)

// Packages removes installed Appx packages. A package that is already gone
// is reported with an error wrapping errdefs.ErrNotFound.
type Packages interface {
	RemovePackage(ctx context.Context, identifier string) error
}

// OptionalFeatures toggles Windows optional features. Disabling a feature
// this build does not have succeeds; enabling one returns an error wrapping
// errdefs.ErrNotFound.
type OptionalFeatures interface {
	SetFeatureState(ctx context.Context, name string, enabled bool) error
}

// BackupIndex is told about every backup file written.
type BackupIndex interface {
	RecordBackup(path string, createdAt time.Time, values int) error
}

// Config wires a Manager to its collaborators. Registry is required; the
// rest are optional.
type Config struct {
	Registry  registry.Registry
	Packages  Packages
	Features  OptionalFeatures
	BackupDir string
	Activity  *activity.Log
	Index     BackupIndex
	Logger    *zap.Logger
}

// Manager applies enable and disable operations.
type Manager struct {
	reg       registry.Registry
	packages  Packages
	features  OptionalFeatures
	backupDir string
	activity  *activity.Log
	index     BackupIndex
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Manager from cfg.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		reg:       cfg.Registry,
		packages:  cfg.Packages,
		features:  cfg.Features,
		backupDir: cfg.BackupDir,
		activity:  cfg.Activity,
		index:     cfg.Index,
		logger:    logger,
		now:       time.Now,
	}
}

// Result is the outcome of one enable or disable call. Sub-operation
// failures never abort the call; they are collected in Err.
type Result struct {
	FeatureID string
	Enable    bool
	Applied   int
	Err       error
}

// OK reports whether at least one toggle point was applied.
func (r Result) OK() bool {
	return r.Applied > 0
}

// Message renders the result for the user.
func (r Result) Message() string {
	verb := "Disabled"
	if r.Enable {
		verb = "Enabled"
	}

	var b strings.Builder
	if r.OK() {
		fmt.Fprintf(&b, "%s %d toggle point(s)", verb, r.Applied)
		if r.Err != nil {
			b.WriteString("; some failed: ")
		}
	}
	if r.Err != nil {
		b.WriteString(strings.ReplaceAll(r.Err.Error(), "\n", "; "))
		if errdefs.IsPermissionDenied(r.Err) {
			b.WriteString(" (run aiprune as administrator)")
		}
	}
	return b.String()
}

// Disable writes every registry toggle's disabled value, removes the
// feature's packages and disables its optional features, in toggle order.
func (m *Manager) Disable(ctx context.Context, f *catalog.Feature) Result {
	res := m.apply(ctx, f, false)
	m.activity.Disable(f.ID, f.Name, res.OK(), res.Message())
	return res
}

// Enable writes every registry toggle's enabled value and enables the
// feature's optional features. Removed packages are not reinstalled.
func (m *Manager) Enable(ctx context.Context, f *catalog.Feature) Result {
	res := m.apply(ctx, f, true)
	m.activity.Enable(f.ID, f.Name, res.OK(), res.Message())
	return res
}

// DisableAll disables each feature in order.
func (m *Manager) DisableAll(ctx context.Context, features []*catalog.Feature) []Result {
	results := make([]Result, 0, len(features))
	for _, f := range features {
		results = append(results, m.Disable(ctx, f))
	}
	return results
}

// EnableAll enables each feature in order.
func (m *Manager) EnableAll(ctx context.Context, features []*catalog.Feature) []Result {
	results := make([]Result, 0, len(features))
	for _, f := range features {
		results = append(results, m.Enable(ctx, f))
	}
	return results
}

func (m *Manager) apply(ctx context.Context, f *catalog.Feature, enable bool) Result {
	res := Result{FeatureID: f.ID, Enable: enable}
	var errs []error
	attempted := 0

	for _, t := range f.Toggles {
		var err error
		switch t := t.(type) {
		case catalog.RegistryToggle:
			value := t.DisabledValue
			if enable {
				value = t.EnabledValue
			}
			err = m.reg.WriteDWORD(t.Scope, t.Path, t.Name, value)

		case catalog.PackageToggle:
			if enable {
				continue
			}
			if m.packages == nil {
				continue
			}
			err = m.packages.RemovePackage(ctx, t.Identifier)
			if errdefs.IsNotFound(err) {
				err = nil
			}

		case catalog.OptionalFeatureToggle:
			if m.features == nil {
				continue
			}
			err = m.features.SetFeatureState(ctx, t.Name, enable)
		}

		attempted++
		if err != nil {
			m.logger.Warn("toggle point failed",
				zap.String("feature", f.ID),
				zap.Stringer("toggle", t),
				zap.Bool("enable", enable),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		res.Applied++
	}

	if attempted == 0 {
		errs = append(errs, fmt.Errorf("%s has no toggle points that can be applied: %w", f.Name, errdefs.ErrNotApplicable))
	}
	res.Err = errors.Join(errs...)
	return res
}
