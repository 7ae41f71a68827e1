package snapshots

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/aiprune/internal/catalog"
)

// Meta describes who wrote a snapshot file and when.
type Meta struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// Entry is the recorded state of one feature.
type Entry struct {
	Name   string         `json:"name"`
	Status catalog.Status `json:"status"`
}

// Snapshot is the on-disk baseline document.
type Snapshot struct {
	Meta     Meta             `json:"meta"`
	Services map[string]Entry `json:"services"`
}

// Time parses Meta.Timestamp. The zero time is returned when it is missing
// or unreadable.
func (s *Snapshot) Time() time.Time {
	t, err := time.Parse(time.RFC3339, s.Meta.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Change is one feature whose live status differs from the baseline.
type Change struct {
	ID       string
	Name     string
	Previous catalog.Status
	Current  catalog.Status
}

// WasReenabled reports whether the feature went from disabled to enabled,
// which is what an OS update reverting the user's choice looks like.
func (c Change) WasReenabled() bool {
	return c.Previous == catalog.StatusDisabled && c.Current == catalog.StatusEnabled
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Name, c.Previous, c.Current)
}
