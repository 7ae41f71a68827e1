package store

const schema = `
CREATE TABLE IF NOT EXISTS backups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    path TEXT NOT NULL UNIQUE,
    value_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS check_runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL,
    baseline_created BOOLEAN NOT NULL DEFAULT 0,
    total_changes INTEGER NOT NULL DEFAULT 0,
    reenabled INTEGER NOT NULL DEFAULT 0,
    restored INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    baseline_saved BOOLEAN NOT NULL DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS drift_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    feature_id TEXT NOT NULL,
    feature_name TEXT,
    previous_status TEXT NOT NULL,
    current_status TEXT NOT NULL,
    reenabled BOOLEAN NOT NULL,
    restored BOOLEAN NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES check_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON check_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_drift_run ON drift_events(run_id);
CREATE INDEX IF NOT EXISTS idx_drift_feature ON drift_events(feature_id);
`
