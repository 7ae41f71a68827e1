// Package config resolves aiprune's data directory and loads its settings
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file name inside the data directory.
const FileName = "config.yaml"

// Dir returns the aiprune data directory, respecting AIPRUNE_HOME.
// Defaults to the user config directory (%APPDATA%\aiprune on Windows).
func Dir() (string, error) {
	if home := os.Getenv("AIPRUNE_HOME"); home != "" {
		return home, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "aiprune"), nil
}

// Paths lays out the files under a data directory.
type Paths struct {
	Root string
}

func (p Paths) Snapshot() string { return filepath.Join(p.Root, "state_snapshot.json") }
func (p Paths) Backups() string  { return filepath.Join(p.Root, "backups") }
func (p Paths) Logs() string     { return filepath.Join(p.Root, "logs") }
func (p Paths) History() string  { return filepath.Join(p.Root, "history.db") }
func (p Paths) Config() string   { return filepath.Join(p.Root, FileName) }

// Watch configures the maintenance loop.
type Watch struct {
	Interval    time.Duration `yaml:"interval"`
	Debounce    time.Duration `yaml:"debounce"`
	UpdatePaths []string      `yaml:"update_paths"`
}

// Timeouts bound the PowerShell operations.
type Timeouts struct {
	PackageQuery  time.Duration `yaml:"package_query"`
	PackageRemove time.Duration `yaml:"package_remove"`
	FeatureToggle time.Duration `yaml:"feature_toggle"`
}

// Logs configures activity log retention.
type Logs struct {
	RetentionDays int `yaml:"retention_days"`
}

// Settings is the contents of config.yaml.
type Settings struct {
	AutoRestore      bool              `yaml:"auto_restore"`
	SaveAfterRestore bool              `yaml:"save_after_restore"`
	Watch            Watch             `yaml:"watch"`
	Timeouts         Timeouts          `yaml:"timeouts"`
	Logs             Logs              `yaml:"logs"`
	Aliases          map[string]string `yaml:"aliases"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		AutoRestore:      true,
		SaveAfterRestore: true,
		Watch: Watch{
			Interval:    6 * time.Hour,
			Debounce:    2 * time.Minute,
			UpdatePaths: defaultUpdatePaths(),
		},
		Timeouts: Timeouts{
			PackageQuery:  30 * time.Second,
			PackageRemove: 60 * time.Second,
			FeatureToggle: 120 * time.Second,
		},
		Logs: Logs{RetentionDays: 30},
	}
}

// defaultUpdatePaths are the directories Windows Update writes to while
// installing.
func defaultUpdatePaths() []string {
	root := os.Getenv("SystemRoot")
	if root == "" {
		root = `C:\Windows`
	}
	return []string{
		filepath.Join(root, "SoftwareDistribution", "DataStore", "Logs"),
		filepath.Join(root, "Logs", "WindowsUpdate"),
	}
}

// Load reads the settings file at path over the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.normalizeAliases()

	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalizeAliases lowercases alias names and targets. Command arguments
// are lowercased before lookup and catalog ids are lowercase.
func (s *Settings) normalizeAliases() {
	if len(s.Aliases) == 0 {
		return
	}
	aliases := make(map[string]string, len(s.Aliases))
	for alias, id := range s.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(alias))] = strings.ToLower(strings.TrimSpace(id))
	}
	s.Aliases = aliases
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv("AIPRUNE_AUTO_RESTORE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AIPRUNE_AUTO_RESTORE: %w", err)
		}
		s.AutoRestore = b
	}
	if v := os.Getenv("AIPRUNE_WATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AIPRUNE_WATCH_INTERVAL: %w", err)
		}
		s.Watch.Interval = d
	}
	return nil
}

// Validate rejects settings the rest of the program cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"watch.interval":          s.Watch.Interval,
		"timeouts.package_query":  s.Timeouts.PackageQuery,
		"timeouts.package_remove": s.Timeouts.PackageRemove,
		"timeouts.feature_toggle": s.Timeouts.FeatureToggle,
	}
	for _, name := range []string{"watch.interval", "timeouts.package_query", "timeouts.package_remove", "timeouts.feature_toggle"} {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, positive[name]))
		}
	}
	if s.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", s.Watch.Debounce))
	}
	if s.Logs.RetentionDays < 1 {
		errs = append(errs, fmt.Errorf("logs.retention_days must be at least 1, got %d", s.Logs.RetentionDays))
	}
	for alias, id := range s.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("aliases: empty alias or feature id (%q: %q)", alias, id))
		}
	}
	return errors.Join(errs...)
}

// Resolve maps an alias to its feature id. Names that are not aliases are
// returned unchanged.
func (s *Settings) Resolve(name string) string {
	if id, ok := s.Aliases[name]; ok {
		return id
	}
	return name
}
