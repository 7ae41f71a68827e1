// Package catalog holds the fixed set of Windows AI features aiprune manages
// and the toggle points that switch each one on or off.
package catalog

import (
	"fmt"
	"strings"
)

// Status is the logical on/off state of a feature.
type Status string

const (
	StatusEnabled      Status = "enabled"
	StatusDisabled     Status = "disabled"
	StatusNotInstalled Status = "not_installed"
	StatusUnknown      Status = "unknown"
)

// ParseStatus maps a stored status string back to a Status.
// Unrecognized values become StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusEnabled:
		return StatusEnabled
	case StatusDisabled:
		return StatusDisabled
	case StatusNotInstalled:
		return StatusNotInstalled
	default:
		return StatusUnknown
	}
}

// Scope selects the registry hive a RegistryToggle lives in.
type Scope int

const (
	ScopeMachine Scope = iota // HKEY_LOCAL_MACHINE
	ScopeUser                 // HKEY_CURRENT_USER
)

// String returns the short hive name used in backup files.
func (s Scope) String() string {
	if s == ScopeMachine {
		return "HKLM"
	}
	return "HKCU"
}

// ParseScope parses a hive name as written by Scope.String.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		return ScopeMachine, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return ScopeUser, nil
	}
	return 0, fmt.Errorf("unknown registry hive %q", s)
}

// ToggleKind discriminates the Toggle variants.
type ToggleKind int

const (
	KindRegistry ToggleKind = iota
	KindPackage
	KindOptionalFeature
)

func (k ToggleKind) String() string {
	switch k {
	case KindRegistry:
		return "registry"
	case KindPackage:
		return "package"
	case KindOptionalFeature:
		return "optional-feature"
	}
	return "unknown"
}

// Toggle is one OS-level switch contributing to a feature's state. The
// concrete types are RegistryToggle, PackageToggle and OptionalFeatureToggle;
// the set is closed.
type Toggle interface {
	Kind() ToggleKind
	String() string
	isToggle()
}

// RegistryToggle is a DWORD policy value. EnabledValue and DisabledValue are
// the raw numbers that mean "on" and "off" for this particular value; they
// differ between policies (AllowCortana=0 is off, DisableWebSearch=1 is off).
type RegistryToggle struct {
	Scope         Scope
	Path          string
	Name          string
	EnabledValue  uint32
	DisabledValue uint32
}

func (RegistryToggle) Kind() ToggleKind { return KindRegistry }
func (RegistryToggle) isToggle()        {}

func (t RegistryToggle) String() string {
	return fmt.Sprintf(`%s\%s\%s`, t.Scope, t.Path, t.Name)
}

// PackageToggle matches installed Appx packages whose name contains
// Identifier, case-insensitively.
type PackageToggle struct {
	Identifier string
}

func (PackageToggle) Kind() ToggleKind { return KindPackage }
func (PackageToggle) isToggle()        {}
func (t PackageToggle) String() string { return "appx:" + t.Identifier }

// OptionalFeatureToggle is a Windows optional feature name.
type OptionalFeatureToggle struct {
	Name string
}

func (OptionalFeatureToggle) Kind() ToggleKind { return KindOptionalFeature }
func (OptionalFeatureToggle) isToggle()        {}
func (t OptionalFeatureToggle) String() string { return "feature:" + t.Name }

// Feature is an immutable catalog entry.
type Feature struct {
	ID          string
	Name        string
	Description string
	Toggles     []Toggle
}

// RegistryToggles returns the feature's registry toggles in declaration order.
func (f *Feature) RegistryToggles() []RegistryToggle {
	var out []RegistryToggle
	for _, t := range f.Toggles {
		if rt, ok := t.(RegistryToggle); ok {
			out = append(out, rt)
		}
	}
	return out
}

// PackageToggles returns the feature's package toggles in declaration order.
func (f *Feature) PackageToggles() []PackageToggle {
	var out []PackageToggle
	for _, t := range f.Toggles {
		if pt, ok := t.(PackageToggle); ok {
			out = append(out, pt)
		}
	}
	return out
}

// OptionalFeatureToggles returns the feature's optional-feature toggles.
func (f *Feature) OptionalFeatureToggles() []OptionalFeatureToggle {
	var out []OptionalFeatureToggle
	for _, t := range f.Toggles {
		if ot, ok := t.(OptionalFeatureToggle); ok {
			out = append(out, ot)
		}
	}
	return out
}

// State pairs a feature with its most recently detected status.
type State struct {
	Feature *Feature
	Status  Status
}

func (s *State) ID() string   { return s.Feature.ID }
func (s *State) Name() string { return s.Feature.Name }
