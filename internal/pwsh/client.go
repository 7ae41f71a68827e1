package pwsh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// Timeouts bounds each class of external operation.
type Timeouts struct {
	PackageQuery  time.Duration
	PackageRemove time.Duration
	FeatureToggle time.Duration
}

// DefaultTimeouts returns 30s for package queries, 60s for package removal
// and 120s for optional-feature changes.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PackageQuery:  30 * time.Second,
		PackageRemove: 60 * time.Second,
		FeatureToggle: 120 * time.Second,
	}
}

// FeatureState is the state of an optional Windows feature.
type FeatureState int

const (
	FeatureDisabled FeatureState = iota
	FeatureEnabled
)

func (s FeatureState) String() string {
	if s == FeatureEnabled {
		return "Enabled"
	}
	return "Disabled"
}

// Client issues Appx and optional-feature cmdlets through a Runner.
type Client struct {
	runner   Runner
	timeouts Timeouts
}

// New creates a Client. A nil runner uses the system PowerShell.
func New(runner Runner, timeouts Timeouts) *Client {
	if runner == nil {
		runner = &Shell{}
	}
	return &Client{runner: runner, timeouts: timeouts}
}

// appxPackage is one element of `Get-AppxPackage | ConvertTo-Json` output.
type appxPackage struct {
	Name            string `json:"Name"`
	PackageFullName string `json:"PackageFullName"`
}

// ListPackages returns the names of all installed Appx packages.
func (c *Client) ListPackages(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.PackageQuery)
	defer cancel()

	out, _, err := c.runner.Run(ctx, "Get-AppxPackage | Select-Object Name, PackageFullName | ConvertTo-Json -Compress")
	if err != nil {
		return nil, fmt.Errorf("list appx packages: %w", err)
	}

	pkgs, err := parsePackageList(out)
	if err != nil {
		return nil, fmt.Errorf("list appx packages: %w", err)
	}

	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// parsePackageList accepts both the array form and the single-object form
// ConvertTo-Json emits when only one package is installed.
func parsePackageList(out []byte) ([]appxPackage, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, fmt.Errorf("empty package list: %w", errdefs.ErrMalformed)
	}

	if strings.HasPrefix(trimmed, "{") {
		var single appxPackage
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, fmt.Errorf("parse package list: %v: %w", err, errdefs.ErrMalformed)
		}
		return []appxPackage{single}, nil
	}

	var list []appxPackage
	if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
		return nil, fmt.Errorf("parse package list: %v: %w", err, errdefs.ErrMalformed)
	}
	return list, nil
}

// RemovePackage uninstalls every package whose name contains identifier.
// It returns an error wrapping errdefs.ErrNotFound when nothing matches.
func (c *Client) RemovePackage(ctx context.Context, identifier string) error {
	pattern := quote("*" + identifier + "*")

	checkCtx, cancel := context.WithTimeout(ctx, c.timeouts.PackageQuery)
	out, _, err := c.runner.Run(checkCtx, "Get-AppxPackage -Name "+pattern)
	cancel()
	if err != nil {
		return fmt.Errorf("query package %s: %w", identifier, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return fmt.Errorf("package %s (already removed): %w", identifier, errdefs.ErrNotFound)
	}

	removeCtx, cancel := context.WithTimeout(ctx, c.timeouts.PackageRemove)
	defer cancel()
	if _, _, err := c.runner.Run(removeCtx, "Get-AppxPackage -Name "+pattern+" | Remove-AppxPackage"); err != nil {
		return fmt.Errorf("remove package %s: %w", identifier, err)
	}
	return nil
}

// FeatureState queries an optional feature. A feature unknown to this
// Windows build yields errdefs.ErrNotFound.
func (c *Client) FeatureState(ctx context.Context, name string) (FeatureState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.PackageQuery)
	defer cancel()

	script := "(Get-WindowsOptionalFeature -Online -FeatureName " + quote(name) + ").State.ToString()"
	out, stderr, err := c.runner.Run(ctx, script)
	if err != nil {
		if errdefs.IsTimeout(err) {
			return FeatureDisabled, fmt.Errorf("query feature %s: %w", name, err)
		}
		if mentionsNotFound(stderr) {
			return FeatureDisabled, fmt.Errorf("feature %s: %w", name, errdefs.ErrNotFound)
		}
		return FeatureDisabled, fmt.Errorf("query feature %s: %w", name, err)
	}

	return parseFeatureState(name, out)
}

func parseFeatureState(name string, out []byte) (FeatureState, error) {
	state := strings.TrimSpace(string(out))
	switch strings.ToLower(state) {
	case "enabled", "enablepending":
		return FeatureEnabled, nil
	case "disabled", "disablepending", "disabledwithpayloadremoved":
		return FeatureDisabled, nil
	case "":
		return FeatureDisabled, fmt.Errorf("feature %s: %w", name, errdefs.ErrNotFound)
	}
	return FeatureDisabled, fmt.Errorf("feature %s: unexpected state %q: %w", name, state, errdefs.ErrMalformed)
}

// SetFeatureState enables or disables an optional feature without
// restarting. Disabling a feature unknown to this build succeeds.
func (c *Client) SetFeatureState(ctx context.Context, name string, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.FeatureToggle)
	defer cancel()

	verb := "Disable"
	if enabled {
		verb = "Enable"
	}
	script := verb + "-WindowsOptionalFeature -Online -FeatureName " + quote(name) + " -NoRestart"

	_, stderr, err := c.runner.Run(ctx, script)
	if err == nil {
		return nil
	}
	if errdefs.IsTimeout(err) {
		return fmt.Errorf("%s feature %s: %w", strings.ToLower(verb), name, err)
	}
	if mentionsNotFound(stderr) {
		if !enabled {
			return nil
		}
		return fmt.Errorf("feature %s: %w", name, errdefs.ErrNotFound)
	}
	return fmt.Errorf("%s feature %s: %w", strings.ToLower(verb), name, err)
}
