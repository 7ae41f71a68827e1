package store

import "time"

// BackupRecord indexes one backup file.
type BackupRecord struct {
	ID         int64
	CreatedAt  time.Time
	Path       string
	ValueCount int
}

// CheckRun is one drift check and whatever it did about the drift.
type CheckRun struct {
	ID              string
	StartedAt       time.Time
	Source          string // "check", "restore", "maintain" or "watch"
	BaselineCreated bool
	TotalChanges    int
	Reenabled       int
	Restored        int
	Failed          int
	BaselineSaved   bool
	Error           string
}

// DriftEvent is one feature found to differ from the baseline.
type DriftEvent struct {
	RunID       string
	FeatureID   string
	FeatureName string
	Previous    string
	Current     string
	Reenabled   bool
	Restored    bool
}

// FeatureDrift summarizes how often a feature drifted.
type FeatureDrift struct {
	FeatureID   string
	FeatureName string
	Reenabled   int
	LastSeen    time.Time
}
