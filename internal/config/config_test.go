package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDir_RespectsAiprunHome(t *testing.T) {
	t.Setenv("AIPRUNE_HOME", "/tmp/aiprune-test")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != "/tmp/aiprune-test" {
		t.Errorf("Dir() = %q, want %q", dir, "/tmp/aiprune-test")
	}
}

func TestDir_DefaultsToUserConfigDir(t *testing.T) {
	t.Setenv("AIPRUNE_HOME", "")
	base, err := os.UserConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if want := filepath.Join(base, "aiprune"); dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestPaths(t *testing.T) {
	p := Paths{Root: "root"}
	tests := []struct {
		got, want string
	}{
		{p.Snapshot(), filepath.Join("root", "state_snapshot.json")},
		{p.Backups(), filepath.Join("root", "backups")},
		{p.Logs(), filepath.Join("root", "logs")},
		{p.History(), filepath.Join("root", "history.db")},
		{p.Config(), filepath.Join("root", "config.yaml")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Setenv("AIPRUNE_AUTO_RESTORE", "")
	t.Setenv("AIPRUNE_WATCH_INTERVAL", "")

	s, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() returned error for missing file: %v", err)
	}
	if !s.AutoRestore || !s.SaveAfterRestore {
		t.Errorf("defaults: AutoRestore=%v SaveAfterRestore=%v, want true/true", s.AutoRestore, s.SaveAfterRestore)
	}
	if s.Watch.Interval != 6*time.Hour {
		t.Errorf("Watch.Interval = %v, want 6h", s.Watch.Interval)
	}
	if s.Timeouts.PackageQuery != 30*time.Second || s.Timeouts.PackageRemove != 60*time.Second || s.Timeouts.FeatureToggle != 120*time.Second {
		t.Errorf("Timeouts = %+v, want 30s/60s/120s", s.Timeouts)
	}
	if s.Logs.RetentionDays != 30 {
		t.Errorf("Logs.RetentionDays = %d, want 30", s.Logs.RetentionDays)
	}
	if len(s.Watch.UpdatePaths) != 2 {
		t.Errorf("expected 2 default update paths, got %v", s.Watch.UpdatePaths)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv("AIPRUNE_AUTO_RESTORE", "")
	t.Setenv("AIPRUNE_WATCH_INTERVAL", "")

	path := filepath.Join(t.TempDir(), FileName)
	content := `auto_restore: false
watch:
  interval: 30m
  update_paths:
    - D:\updates
timeouts:
  package_remove: 90s
aliases:
  widgets: windows_widgets
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.AutoRestore {
		t.Error("AutoRestore = true, want false from file")
	}
	if !s.SaveAfterRestore {
		t.Error("SaveAfterRestore lost its default")
	}
	if s.Watch.Interval != 30*time.Minute {
		t.Errorf("Watch.Interval = %v, want 30m", s.Watch.Interval)
	}
	if s.Watch.Debounce != 2*time.Minute {
		t.Errorf("Watch.Debounce = %v, want default 2m", s.Watch.Debounce)
	}
	if len(s.Watch.UpdatePaths) != 1 || s.Watch.UpdatePaths[0] != `D:\updates` {
		t.Errorf("Watch.UpdatePaths = %v", s.Watch.UpdatePaths)
	}
	if s.Timeouts.PackageRemove != 90*time.Second {
		t.Errorf("Timeouts.PackageRemove = %v, want 90s", s.Timeouts.PackageRemove)
	}
	if s.Timeouts.PackageQuery != 30*time.Second {
		t.Errorf("Timeouts.PackageQuery = %v, want default 30s", s.Timeouts.PackageQuery)
	}
	if got := s.Resolve("widgets"); got != "windows_widgets" {
		t.Errorf("Resolve(widgets) = %q, want windows_widgets", got)
	}
	if got := s.Resolve("copilot"); got != "copilot" {
		t.Errorf("Resolve(copilot) = %q, want copilot", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AIPRUNE_AUTO_RESTORE", "false")
	t.Setenv("AIPRUNE_WATCH_INTERVAL", "15m")

	s, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.AutoRestore {
		t.Error("AIPRUNE_AUTO_RESTORE=false not applied")
	}
	if s.Watch.Interval != 15*time.Minute {
		t.Errorf("Watch.Interval = %v, want 15m", s.Watch.Interval)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("AIPRUNE_AUTO_RESTORE", "sometimes")
	t.Setenv("AIPRUNE_WATCH_INTERVAL", "")

	if _, err := Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Error("Load() accepted an unparsable AIPRUNE_AUTO_RESTORE")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("watch: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"defaults", func(s *Settings) {}, ""},
		{"zero interval", func(s *Settings) { s.Watch.Interval = 0 }, "watch.interval"},
		{"negative timeout", func(s *Settings) { s.Timeouts.FeatureToggle = -time.Second }, "timeouts.feature_toggle"},
		{"negative debounce", func(s *Settings) { s.Watch.Debounce = -1 }, "watch.debounce"},
		{"zero retention", func(s *Settings) { s.Logs.RetentionDays = 0 }, "logs.retention_days"},
		{"empty alias target", func(s *Settings) { s.Aliases = map[string]string{"x": ""} }, "aliases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_LowercasesAliases(t *testing.T) {
	t.Setenv("AIPRUNE_AUTO_RESTORE", "")
	t.Setenv("AIPRUNE_WATCH_INTERVAL", "")

	path := filepath.Join(t.TempDir(), FileName)
	content := "aliases:\n  Ask: Copilot\n  CLICK: click_to_do\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := s.Resolve("ask"); got != "copilot" {
		t.Errorf("Resolve(ask) = %q, want copilot", got)
	}
	if got := s.Resolve("click"); got != "click_to_do" {
		t.Errorf("Resolve(click) = %q, want click_to_do", got)
	}
}
