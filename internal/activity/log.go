// Package activity keeps the user-facing history of what aiprune detected
// and changed. Entries are stored as one JSON document per calendar day:
//
//	{"date": "2026-10-19", "entries": [{"timestamp": ..., "level": ..., ...}]}
//
// The current day's entries are held in memory and the whole file is
// rewritten on every append.
package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/aiprune/internal/events"
)

// Level is the severity of an entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Action tags what kind of event an entry records.
type Action string

const (
	ActionDetection   Action = "DETECTION"
	ActionDisable     Action = "DISABLE"
	ActionEnable      Action = "ENABLE"
	ActionBackup      Action = "BACKUP"
	ActionRestore     Action = "RESTORE"
	ActionAutoRestore Action = "AUTO_RESTORE"
	ActionBaseline    Action = "BASELINE"
	ActionCheck       Action = "CHECK"
)

// SystemID is the feature id used for entries not tied to one feature.
const SystemID = "system"

const (
	timestampLayout = "2006-01-02 15:04:05"
	fileDayLayout   = "20060102"
	docDayLayout    = "2006-01-02"
)

// Entry is one activity record.
type Entry struct {
	Timestamp   string         `json:"timestamp"`
	Level       Level          `json:"level"`
	Action      Action         `json:"action"`
	ServiceID   string         `json:"service_id"`
	ServiceName string         `json:"service_name"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details"`
}

// Time parses the entry timestamp in local time.
func (e Entry) Time() (time.Time, error) {
	return time.ParseInLocation(timestampLayout, e.Timestamp, time.Local)
}

type dayFile struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// Log is the activity log rooted at one directory. A nil *Log discards
// every write and reads as empty, so components can treat it as optional.
type Log struct {
	mu      sync.Mutex
	dir     string
	day     string
	entries []Entry
	bus     *events.Bus[Entry]
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithBus publishes every appended entry on bus.
func WithBus(bus *events.Bus[Entry]) Option {
	return func(l *Log) { l.bus = bus }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the diagnostic logger used for write failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open creates dir if needed and loads today's entries. A corrupt day file
// is treated as empty.
func Open(dir string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Log{
		dir:    dir,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.day = l.now().Format(fileDayLayout)
	l.entries = l.readDay(l.day)
	return l, nil
}

// Dir returns the directory holding the day files.
func (l *Log) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

func (l *Log) pathFor(day string) string {
	return filepath.Join(l.dir, "activity_"+day+".json")
}

func (l *Log) readDay(day string) []Entry {
	data, err := os.ReadFile(l.pathFor(day))
	if err != nil {
		return nil
	}
	var doc dayFile
	if err := json.Unmarshal(data, &doc); err != nil {
		l.logger.Warn("ignoring unreadable activity log", zap.String("day", day), zap.Error(err))
		return nil
	}
	return doc.Entries
}

// Log appends an entry and rewrites the day file. Write failures are logged
// and otherwise ignored; the entry is still kept in memory and published.
func (l *Log) Log(level Level, action Action, featureID, featureName, message string, details map[string]any) Entry {
	if l == nil {
		return Entry{}
	}

	l.mu.Lock()
	now := l.now()
	if day := now.Format(fileDayLayout); day != l.day {
		l.day = day
		l.entries = l.readDay(day)
	}

	entry := Entry{
		Timestamp:   now.Format(timestampLayout),
		Level:       level,
		Action:      action,
		ServiceID:   featureID,
		ServiceName: featureName,
		Message:     message,
		Details:     details,
	}
	l.entries = append(l.entries, entry)

	if err := l.save(now); err != nil {
		l.logger.Warn("failed to write activity log", zap.Error(err))
	}
	l.mu.Unlock()

	l.bus.Publish(entry)
	return entry
}

// save must be called with the lock held.
func (l *Log) save(now time.Time) error {
	doc := dayFile{
		Date:    now.Format(docDayLayout),
		Entries: l.entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activity log: %w", err)
	}
	if err := os.WriteFile(l.pathFor(l.day), data, 0644); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

func levelFor(ok bool) Level {
	if ok {
		return LevelSuccess
	}
	return LevelError
}

// Detection records the detected status of a feature.
func (l *Log) Detection(featureID, featureName, status string) Entry {
	return l.Log(LevelInfo, ActionDetection, featureID, featureName,
		"Feature detected with status: "+status, nil)
}

// Disable records the outcome of disabling a feature.
func (l *Log) Disable(featureID, featureName string, ok bool, message string) Entry {
	return l.Log(levelFor(ok), ActionDisable, featureID, featureName, message, nil)
}

// Enable records the outcome of enabling a feature.
func (l *Log) Enable(featureID, featureName string, ok bool, message string) Entry {
	return l.Log(levelFor(ok), ActionEnable, featureID, featureName, message, nil)
}

// Backup records a backup attempt.
func (l *Log) Backup(ok bool, path string) Entry {
	msg := "Backup created: " + path
	if !ok {
		msg = "Backup failed: " + path
	}
	return l.Log(levelFor(ok), ActionBackup, SystemID, "System", msg, nil)
}

// Restore records a backup restoration.
func (l *Log) Restore(ok bool, message string) Entry {
	return l.Log(levelFor(ok), ActionRestore, SystemID, "System", message, nil)
}

// Entries returns up to limit of today's entries, newest first. A limit of
// zero or less returns all of them.
func (l *Log) Entries(limit int) []Entry {
	return l.filter(limit, func(Entry) bool { return true })
}

// ForFeature returns up to limit of today's entries for one feature,
// newest first.
func (l *Log) ForFeature(featureID string, limit int) []Entry {
	return l.filter(limit, func(e Entry) bool { return e.ServiceID == featureID })
}

func (l *Log) filter(limit int, keep func(Entry) bool) []Entry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if !keep(l.entries[i]) {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Day loads the entries recorded on the given date, oldest first.
func (l *Log) Day(date time.Time) []Entry {
	if l == nil {
		return nil
	}
	day := date.Format(fileDayLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if day == l.day {
		return append([]Entry(nil), l.entries...)
	}
	return l.readDay(day)
}

// Recent returns up to limit entries across all day files, newest first.
// An empty featureID matches every entry.
func (l *Log) Recent(featureID string, limit int) []Entry {
	if l == nil {
		return nil
	}
	keep := func(e Entry) bool { return featureID == "" || e.ServiceID == featureID }

	out := l.filter(limit, keep)
	l.mu.Lock()
	today := l.day
	l.mu.Unlock()

	for _, name := range l.Files() {
		if limit > 0 && len(out) >= limit {
			break
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, "activity_"), ".json")
		if day >= today {
			continue
		}
		entries := l.readDay(day)
		for i := len(entries) - 1; i >= 0; i-- {
			if !keep(entries[i]) {
				continue
			}
			out = append(out, entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// Files lists the day files in the log directory, newest first.
func (l *Log) Files() []string {
	if l == nil {
		return nil
	}
	names, err := filepath.Glob(filepath.Join(l.dir, "activity_*.json"))
	if err != nil {
		return nil
	}
	for i, n := range names {
		names[i] = filepath.Base(n)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// Prune deletes day files older than daysToKeep days and returns how many
// were removed. Files whose name does not carry a date are left alone.
func (l *Log) Prune(daysToKeep int) (int, error) {
	if l == nil {
		return 0, nil
	}
	cutoff := l.now().AddDate(0, 0, -daysToKeep).Format(fileDayLayout)

	removed := 0
	for _, name := range l.Files() {
		day := strings.TrimSuffix(strings.TrimPrefix(name, "activity_"), ".json")
		if _, err := time.Parse(fileDayLayout, day); err != nil {
			continue
		}
		if day >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to delete %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// AutoRestore records a feature being switched back off after drift.
func (l *Log) AutoRestore(featureID, featureName, message string) Entry {
	return l.Log(LevelWarning, ActionAutoRestore, featureID, featureName, message, nil)
}

// Baseline records a snapshot being saved or accepted.
func (l *Log) Baseline(message string, count int) Entry {
	return l.Log(LevelInfo, ActionBaseline, SystemID, "System", message,
		map[string]any{"count": count})
}
