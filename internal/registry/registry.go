// Package registry reads and writes the DWORD policy values behind registry
// toggles. The System implementation talks to the Windows registry; Memory is
// an in-process test double shared by the package tests of its callers.
package registry

import (
	"fmt"

	"github.com/blackwell-systems/aiprune/internal/catalog"
)

// Registry is the OS registry capability the detector and manager consume.
//
// ReadDWORD returns an error wrapping errdefs.ErrNotFound when the key or
// value is absent and errdefs.ErrPermissionDenied when access is refused.
// WriteDWORD creates the key path if it does not exist.
type Registry interface {
	ReadDWORD(scope catalog.Scope, path, name string) (uint32, error)
	WriteDWORD(scope catalog.Scope, path, name string, value uint32) error
}

func location(scope catalog.Scope, path, name string) string {
	return fmt.Sprintf(`%s\%s\%s`, scope, path, name)
}
