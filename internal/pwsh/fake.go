package pwsh

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// Fake is an in-memory test double for Client, shared by the package tests
// of the detector, manager and command layers. Package names and optional
// features live in maps the caller controls; Err, when set, is returned by
// every call.
type Fake struct {
	mu       sync.Mutex
	Packages []string
	Features map[string]FeatureState
	Err      error

	Removed []string
	Toggled []string
}

// NewFake returns a Fake with the given installed packages.
func NewFake(packages ...string) *Fake {
	return &Fake{
		Packages: packages,
		Features: make(map[string]FeatureState),
	}
}

func (f *Fake) ListPackages(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]string(nil), f.Packages...), nil
}

func (f *Fake) RemovePackage(ctx context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}

	needle := strings.ToLower(identifier)
	kept := f.Packages[:0]
	removed := false
	for _, p := range f.Packages {
		if strings.Contains(strings.ToLower(p), needle) {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	f.Packages = kept
	if !removed {
		return fmt.Errorf("package %s (already removed): %w", identifier, errdefs.ErrNotFound)
	}
	f.Removed = append(f.Removed, identifier)
	return nil
}

func (f *Fake) FeatureState(ctx context.Context, name string) (FeatureState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return FeatureDisabled, f.Err
	}
	st, ok := f.Features[name]
	if !ok {
		return FeatureDisabled, fmt.Errorf("feature %s: %w", name, errdefs.ErrNotFound)
	}
	return st, nil
}

func (f *Fake) SetFeatureState(ctx context.Context, name string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.Features[name]; !ok {
		if !enabled {
			return nil
		}
		return fmt.Errorf("feature %s: %w", name, errdefs.ErrNotFound)
	}
	if enabled {
		f.Features[name] = FeatureEnabled
	} else {
		f.Features[name] = FeatureDisabled
	}
	f.Toggled = append(f.Toggled, name)
	return nil
}
