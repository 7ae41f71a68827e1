//go:build !windows

package registry

import (
	"fmt"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// System reports every registry access as not applicable off Windows.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (s *System) ReadDWORD(scope catalog.Scope, path, name string) (uint32, error) {
	return 0, fmt.Errorf("%s: registry unavailable on this platform: %w", location(scope, path, name), errdefs.ErrNotApplicable)
}

func (s *System) WriteDWORD(scope catalog.Scope, path, name string, value uint32) error {
	return fmt.Errorf("%s: registry unavailable on this platform: %w", location(scope, path, name), errdefs.ErrNotApplicable)
}
