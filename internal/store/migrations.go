package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Print jobs table - one row per POST /api/print
		`CREATE TABLE IF NOT EXISTS print_jobs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			watch_seconds INTEGER NOT NULL,
			watched_percent REAL NOT NULL,
			grade TEXT NOT NULL CHECK(grade IN ('A', 'B', 'C', 'D', 'E')),
			subtotal INTEGER NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('success', 'error')),
			message TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Gesture events table - edge-triggered events pushed to clients
		`CREATE TABLE IF NOT EXISTS gesture_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			body_id INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - runtime toggles that survive a restart
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_print_jobs_created_at ON print_jobs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gesture_events_created_at ON gesture_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gesture_events_name ON gesture_events(name)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
