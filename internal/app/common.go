package app

import (
	"fmt"
	"time"
)

// parsePositiveDuration parses a Go duration string and rejects zero and
// negative values.
func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
