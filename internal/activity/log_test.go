package activity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/aiprune/internal/events"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLog(t *testing.T, start time.Time, opts ...Option) (*Log, *clock) {
	t.Helper()
	c := &clock{t: start}
	l, err := Open(t.TempDir(), append([]Option{WithClock(c.now)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return l, c
}

func TestLogWritesDayFile(t *testing.T) {
	start := time.Date(2026, 3, 5, 9, 30, 0, 0, time.Local)
	l, _ := newTestLog(t, start)

	l.Disable("recall", "Windows Recall", true, "Disabled 2 of 2 toggle points")

	data, err := os.ReadFile(filepath.Join(l.Dir(), "activity_20260305.json"))
	if err != nil {
		t.Fatalf("day file not written: %v", err)
	}

	var doc struct {
		Date    string                   `json:"date"`
		Entries []map[string]interface{} `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("day file is not valid JSON: %v", err)
	}
	if doc.Date != "2026-03-05" {
		t.Errorf("date = %q, want 2026-03-05", doc.Date)
	}
	if len(doc.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(doc.Entries))
	}

	e := doc.Entries[0]
	want := map[string]string{
		"timestamp":    "2026-03-05 09:30:00",
		"level":        "success",
		"action":       "DISABLE",
		"service_id":   "recall",
		"service_name": "Windows Recall",
		"message":      "Disabled 2 of 2 toggle points",
	}
	for k, v := range want {
		if e[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, e[k], v)
		}
	}
}

func TestEntriesNewestFirst(t *testing.T) {
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local)
	l, c := newTestLog(t, start)

	l.Detection("copilot", "Windows Copilot", "enabled")
	c.advance(time.Minute)
	l.Disable("copilot", "Windows Copilot", true, "ok")
	c.advance(time.Minute)
	l.Enable("recall", "Windows Recall", false, "access denied")

	all := l.Entries(0)
	if len(all) != 3 {
		t.Fatalf("Entries(0) returned %d, want 3", len(all))
	}
	if all[0].Action != ActionEnable || all[2].Action != ActionDetection {
		t.Errorf("Entries not newest first: %v, %v", all[0].Action, all[2].Action)
	}
	if all[0].Level != LevelError {
		t.Errorf("failed enable level = %s, want error", all[0].Level)
	}

	if got := l.Entries(2); len(got) != 2 {
		t.Errorf("Entries(2) returned %d, want 2", len(got))
	}

	copilot := l.ForFeature("copilot", 0)
	if len(copilot) != 2 {
		t.Fatalf("ForFeature(copilot) returned %d, want 2", len(copilot))
	}
	if copilot[0].Action != ActionDisable {
		t.Errorf("ForFeature newest = %s, want DISABLE", copilot[0].Action)
	}
	if got := l.ForFeature("copilot", 1); len(got) != 1 {
		t.Errorf("ForFeature(copilot, 1) returned %d, want 1", len(got))
	}
}

func TestOpenLoadsExistingDay(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local)
	now := func() time.Time { return start }

	first, err := Open(dir, WithClock(now))
	if err != nil {
		t.Fatal(err)
	}
	first.Backup(true, "backup_20260305_090000.json")

	second, err := Open(dir, WithClock(now))
	if err != nil {
		t.Fatal(err)
	}
	second.Restore(true, "Restored 3 registry values")

	got := second.Entries(0)
	if len(got) != 2 {
		t.Fatalf("reopened log has %d entries, want 2", len(got))
	}
	if got[1].Action != ActionBackup || got[1].ServiceID != SystemID {
		t.Errorf("oldest entry = %+v, want system BACKUP", got[1])
	}
}

func TestCorruptDayFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local)
	if err := os.WriteFile(filepath.Join(dir, "activity_20260305.json"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(dir, WithClock(func() time.Time { return start }))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if n := len(l.Entries(0)); n != 0 {
		t.Errorf("corrupt file produced %d entries, want 0", n)
	}

	l.Baseline("Baseline saved", 15)
	if n := len(l.Entries(0)); n != 1 {
		t.Errorf("after append got %d entries, want 1", n)
	}
}

func TestDayRollover(t *testing.T) {
	start := time.Date(2026, 3, 5, 23, 59, 0, 0, time.Local)
	l, c := newTestLog(t, start)

	l.Detection("copilot", "Windows Copilot", "enabled")
	c.advance(2 * time.Minute)
	l.AutoRestore("copilot", "Windows Copilot", "Re-disabled after update")

	if got := l.Entries(0); len(got) != 1 || got[0].Action != ActionAutoRestore {
		t.Errorf("after rollover Entries = %+v, want only the AUTO_RESTORE entry", got)
	}

	prev := l.Day(start)
	if len(prev) != 1 || prev[0].Action != ActionDetection {
		t.Errorf("Day(previous) = %+v, want the DETECTION entry", prev)
	}

	files := l.Files()
	want := []string{"activity_20260306.json", "activity_20260305.json"}
	if len(files) != len(want) {
		t.Fatalf("Files() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Files()[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestPrune(t *testing.T) {
	start := time.Date(2026, 3, 31, 12, 0, 0, 0, time.Local)
	l, _ := newTestLog(t, start)

	for _, name := range []string{
		"activity_20260101.json",
		"activity_20260228.json",
		"activity_20260330.json",
		"activity_notadate.json",
	} {
		if err := os.WriteFile(filepath.Join(l.Dir(), name), []byte(`{"date":"","entries":[]}`), 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := l.Prune(30)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}

	for _, name := range []string{"activity_20260330.json", "activity_notadate.json"} {
		if _, err := os.Stat(filepath.Join(l.Dir(), name)); err != nil {
			t.Errorf("%s should survive prune: %v", name, err)
		}
	}
}

func TestLogPublishesToBus(t *testing.T) {
	bus := events.NewBus[Entry]()
	var got []Entry
	bus.Subscribe(func(e Entry) { got = append(got, e) })

	l, _ := newTestLog(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local), WithBus(bus))
	l.Disable("recall", "Windows Recall", true, "ok")

	if len(got) != 1 || got[0].ServiceID != "recall" {
		t.Errorf("bus received %+v, want one recall entry", got)
	}
}

func TestNilLogIsNoop(t *testing.T) {
	var l *Log
	if e := l.Disable("recall", "Windows Recall", true, "ok"); e.Action != "" {
		t.Errorf("nil Log returned %+v, want zero entry", e)
	}
	if got := l.Entries(0); got != nil {
		t.Errorf("Entries() = %v, want nil", got)
	}
	if got := l.ForFeature("recall", 0); got != nil {
		t.Errorf("ForFeature() = %v, want nil", got)
	}
	if got := l.Recent("", 5); got != nil {
		t.Errorf("Recent() = %v, want nil", got)
	}
	if got := l.Day(time.Now()); got != nil {
		t.Errorf("Day() = %v, want nil", got)
	}
	if got := l.Files(); got != nil {
		t.Errorf("Files() = %v, want nil", got)
	}
	if n, err := l.Prune(7); n != 0 || err != nil {
		t.Errorf("Prune() = %d, %v, want 0, nil", n, err)
	}
}

func TestEntryTime(t *testing.T) {
	e := Entry{Timestamp: "2026-03-05 09:30:15"}
	got, err := e.Time()
	if err != nil {
		t.Fatalf("Time() error = %v", err)
	}
	want := time.Date(2026, 3, 5, 9, 30, 15, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func TestRecentSpansDays(t *testing.T) {
	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)
	l, c := newTestLog(t, start)

	l.Disable("copilot", "Windows Copilot", true, "Disabled 2 toggle point(s)")
	c.advance(24 * time.Hour)
	l.Detection("recall", "Windows Recall", "enabled")
	c.advance(24 * time.Hour)
	l.AutoRestore("copilot", "Windows Copilot", "Re-disabled after update")
	l.Baseline("Baseline saved", 15)

	all := l.Recent("", 0)
	if len(all) != 4 {
		t.Fatalf("Recent(all) returned %d entries, want 4", len(all))
	}
	wantOrder := []Action{ActionBaseline, ActionAutoRestore, ActionDetection, ActionDisable}
	for i, a := range wantOrder {
		if all[i].Action != a {
			t.Errorf("Recent()[%d].Action = %s, want %s", i, all[i].Action, a)
		}
	}

	copilot := l.Recent("copilot", 0)
	if len(copilot) != 2 || copilot[1].Action != ActionDisable {
		t.Errorf("Recent(copilot) = %+v, want AUTO_RESTORE then DISABLE", copilot)
	}

	if got := l.Recent("", 3); len(got) != 3 {
		t.Errorf("Recent(limit 3) returned %d entries", len(got))
	}
}
