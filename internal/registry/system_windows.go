//go:build windows

package registry

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/windows/registry"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// System is the live Windows registry.
type System struct{}

// NewSystem returns the live registry.
func NewSystem() *System {
	return &System{}
}

func rootKey(scope catalog.Scope) registry.Key {
	if scope == catalog.ScopeMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

// ReadDWORD reads an integer value. QWORD values are truncated to 32 bits.
func (s *System) ReadDWORD(scope catalog.Scope, path, name string) (uint32, error) {
	key, err := registry.OpenKey(rootKey(scope), path, registry.QUERY_VALUE)
	if err != nil {
		return 0, classify(location(scope, path, name), err)
	}
	defer key.Close()

	val, _, err := key.GetIntegerValue(name)
	if err != nil {
		return 0, classify(location(scope, path, name), err)
	}
	return uint32(val), nil
}

// WriteDWORD writes a REG_DWORD value, creating the key if needed.
func (s *System) WriteDWORD(scope catalog.Scope, path, name string, value uint32) error {
	key, _, err := registry.CreateKey(rootKey(scope), path, registry.SET_VALUE)
	if err != nil {
		return classify(location(scope, path, name), err)
	}
	defer key.Close()

	if err := key.SetDWordValue(name, value); err != nil {
		return classify(location(scope, path, name), err)
	}
	return nil
}

func classify(loc string, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotExist), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", loc, errdefs.ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", loc, errdefs.ErrPermissionDenied)
	default:
		return fmt.Errorf("%s: %w", loc, err)
	}
}
