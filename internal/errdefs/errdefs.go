// Package errdefs defines the error kinds shared across aiprune.
//
// Producers wrap one of the sentinels with context:
//
//	return fmt.Errorf("read %s\\%s: %w", path, name, errdefs.ErrNotFound)
//
// and consumers classify with errors.Is or the Is* helpers.
package errdefs

import "errors"

var (
	// ErrNotFound means a registry key or value, a package, an optional
	// feature or a backup file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means the operation needs an elevated process.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTimeout means an external process exceeded its time bound.
	ErrTimeout = errors.New("timed out")

	// ErrMalformed means a snapshot, backup or profile file could not be parsed.
	ErrMalformed = errors.New("malformed")

	// ErrNotApplicable means a feature has no usable toggle on this system.
	ErrNotApplicable = errors.New("not applicable")
)

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }
func IsTimeout(err error) bool          { return errors.Is(err, ErrTimeout) }
func IsMalformed(err error) bool        { return errors.Is(err, ErrMalformed) }
