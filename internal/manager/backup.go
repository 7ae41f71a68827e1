package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

const backupNameLayout = "20060102_150405"

// RegistryValue is one raw value captured in a backup.
type RegistryValue struct {
	Path  string `json:"path"`
	Key   string `json:"key"`
	Value uint32 `json:"value"`
	Hive  string `json:"hive"`
}

// BackupService groups the captured values of one feature.
type BackupService struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	RegistryValues []RegistryValue `json:"registry_values"`
}

// Backup is the on-disk backup document.
type Backup struct {
	Timestamp string          `json:"timestamp"`
	Services  []BackupService `json:"services"`
}

// Values returns the total number of captured registry values.
func (b *Backup) Values() int {
	n := 0
	for _, s := range b.Services {
		n += len(s.RegistryValues)
	}
	return n
}

// BackupInfo describes a backup file on disk.
type BackupInfo struct {
	Path      string
	Name      string
	CreatedAt time.Time
	Size      int64
}

// CreateBackup records the current raw value of every registry toggle of
// every feature and writes it to a new timestamped file. Values that cannot
// be read are skipped. It returns the file path.
func (m *Manager) CreateBackup(features []*catalog.Feature) (string, error) {
	path, err := m.createBackup(features)
	if err != nil {
		m.activity.Backup(false, err.Error())
		return "", err
	}
	m.activity.Backup(true, path)
	return path, nil
}

func (m *Manager) createBackup(features []*catalog.Feature) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := m.now()
	doc := Backup{
		Timestamp: now.Format(time.RFC3339),
		Services:  make([]BackupService, 0, len(features)),
	}

	for _, f := range features {
		svc := BackupService{ID: f.ID, Name: f.Name, RegistryValues: []RegistryValue{}}
		for _, t := range f.RegistryToggles() {
			v, err := m.reg.ReadDWORD(t.Scope, t.Path, t.Name)
			if err != nil {
				m.logger.Debug("backup skipped unreadable value",
					zap.String("feature", f.ID), zap.Stringer("toggle", t), zap.Error(err))
				continue
			}
			svc.RegistryValues = append(svc.RegistryValues, RegistryValue{
				Path:  t.Path,
				Key:   t.Name,
				Value: v,
				Hive:  t.Scope.String(),
			})
		}
		doc.Services = append(doc.Services, svc)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	path := m.backupPath(now)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	if m.index != nil {
		if err := m.index.RecordBackup(path, now, doc.Values()); err != nil {
			m.logger.Warn("failed to index backup", zap.String("path", path), zap.Error(err))
		}
	}
	return path, nil
}

// backupPath picks a file name for now that does not overwrite an
// existing backup.
func (m *Manager) backupPath(now time.Time) string {
	base := "backup_" + now.Format(backupNameLayout)
	path := filepath.Join(m.backupDir, base+".json")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s_%d.json", base, i))
	}
}

// LoadBackup reads a backup file.
func LoadBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("backup %s: %w", path, errdefs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	var doc Backup
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("backup %s: %v: %w", path, err, errdefs.ErrMalformed)
	}
	return &doc, nil
}

// RestoreBackup writes every recorded value back through the same path
// used by Enable and Disable. It returns how many values were restored;
// a non-nil error lists the values that could not be written.
func (m *Manager) RestoreBackup(path string) (int, error) {
	doc, err := LoadBackup(path)
	if err != nil {
		m.activity.Restore(false, err.Error())
		return 0, err
	}

	restored := 0
	var errs []error
	for _, svc := range doc.Services {
		for _, rv := range svc.RegistryValues {
			scope, err := catalog.ParseScope(rv.Hive)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", svc.ID, err))
				continue
			}
			if err := m.reg.WriteDWORD(scope, rv.Path, rv.Key, rv.Value); err != nil {
				m.logger.Warn("failed to restore value",
					zap.String("feature", svc.ID), zap.String("key", rv.Key), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", svc.ID, err))
				continue
			}
			restored++
		}
	}

	err = errors.Join(errs...)
	msg := fmt.Sprintf("Restored %d registry value(s) from %s", restored, filepath.Base(path))
	if err != nil {
		msg += fmt.Sprintf(", %d failed", len(errs))
	}
	m.activity.Restore(err == nil, msg)
	return restored, err
}

// ListBackups returns the backup files in the backup directory, newest
// first. A missing directory yields an empty list.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "backup_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, name),
			Name:      name,
			CreatedAt: backupTime(name, info.ModTime()),
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// LatestBackup returns the newest backup.
func (m *Manager) LatestBackup() (BackupInfo, bool) {
	backups, err := m.ListBackups()
	if err != nil || len(backups) == 0 {
		return BackupInfo{}, false
	}
	return backups[0], true
}

// backupTime parses the timestamp embedded in a backup file name, falling
// back to the file's modification time.
func backupTime(name string, modTime time.Time) time.Time {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "backup_"), ".json")
	if len(stamp) > len(backupNameLayout) {
		stamp = stamp[:len(backupNameLayout)]
	}
	t, err := time.ParseInLocation(backupNameLayout, stamp, time.Local)
	if err != nil {
		return modTime
	}
	return t
}
