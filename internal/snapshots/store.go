// Package snapshots persists the single baseline of user-intended feature
// states and diffs live detection results against it.
package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/catalog"
)

// AppName is written into every snapshot's meta block.
const AppName = "aiprune"

// FileName is the baseline file name inside the data directory.
const FileName = "state_snapshot.json"

// Store reads and writes the baseline file.
type Store struct {
	path    string
	version string
	logger  *zap.Logger
	now     func() time.Time
}

// New returns a Store for the file at path. version is the running
// application version recorded in meta.version.
func New(path, version string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:    path,
		version: version,
		logger:  logger,
		now:     time.Now,
	}
}

// Path returns the baseline file location.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the baseline with the given states.
func (s *Store) Save(states []*catalog.State) error {
	snap := Snapshot{
		Meta: Meta{
			App:       AppName,
			Version:   s.version,
			Timestamp: s.now().Format(time.RFC3339),
			Count:     len(states),
		},
		Services: make(map[string]Entry, len(states)),
	}
	for _, st := range states {
		snap.Services[st.ID()] = Entry{Name: st.Name(), Status: st.Status}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	s.logger.Debug("baseline saved", zap.String("path", s.path), zap.Int("count", len(states)))
	return nil
}

// Load returns the stored baseline. A missing or unparsable file yields
// false; a corrupt baseline is treated exactly like no baseline.
func (s *Store) Load() (*Snapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read snapshot", zap.String("path", s.path), zap.Error(err))
		}
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Services == nil {
		s.logger.Warn("ignoring corrupt snapshot", zap.String("path", s.path), zap.Error(err))
		return nil, false
	}

	s.checkVersion(snap.Meta.Version)
	return &snap, true
}

// checkVersion warns when the baseline was written by a newer major
// release. The baseline is still used.
func (s *Store) checkVersion(written string) {
	running, err := semver.NewVersion(s.version)
	if err != nil {
		return
	}
	stored, err := semver.NewVersion(written)
	if err != nil {
		return
	}
	if stored.Major() > running.Major() {
		s.logger.Warn("snapshot written by a newer version",
			zap.String("snapshot_version", stored.String()),
			zap.String("running_version", running.String()))
	}
}

// Exists reports whether a baseline file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the baseline. Deleting a missing baseline is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Timestamp returns when the baseline was saved.
func (s *Store) Timestamp() (time.Time, bool) {
	snap, ok := s.Load()
	if !ok {
		return time.Time{}, false
	}
	t := snap.Time()
	return t, !t.IsZero()
}

// Compare diffs states against the baseline, in the order of states.
// Features the baseline does not know are skipped, and baseline entries
// missing from states are never reported. Without a baseline the result
// is empty.
func (s *Store) Compare(states []*catalog.State) []Change {
	snap, ok := s.Load()
	if !ok {
		return nil
	}
	return Diff(snap, states)
}

// Diff is Compare against an already loaded snapshot. A baseline entry
// without a status counts as unknown.
func Diff(snap *Snapshot, states []*catalog.State) []Change {
	var changes []Change
	for _, st := range states {
		prev, ok := snap.Services[st.ID()]
		if !ok {
			continue
		}
		before := prev.Status
		if before == "" {
			before = catalog.StatusUnknown
		}
		if before == st.Status {
			continue
		}
		changes = append(changes, Change{
			ID:       st.ID(),
			Name:     st.Name(),
			Previous: before,
			Current:  st.Status,
		})
	}
	return changes
}

// Reenabled returns only the changes where a disabled feature is now
// enabled.
func (s *Store) Reenabled(states []*catalog.State) []Change {
	var out []Change
	for _, c := range s.Compare(states) {
		if c.WasReenabled() {
			out = append(out, c)
		}
	}
	return out
}
