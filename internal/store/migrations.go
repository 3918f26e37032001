package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per alert raised by the analyzer
		`CREATE TABLE IF NOT EXISTS touch_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			duration REAL NOT NULL,
			closest_distance REAL NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL CHECK(hour BETWEEN 0 AND 23)
		)`,

		// Per-day aggregate, rebuilt whenever an event is logged for that day
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			date TEXT PRIMARY KEY,
			total_touches INTEGER NOT NULL,
			total_duration REAL NOT NULL,
			first_touch TEXT,
			last_touch TEXT,
			hourly_distribution TEXT NOT NULL DEFAULT '{}'
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_touch_events_date ON touch_events(date)`,
		`CREATE INDEX IF NOT EXISTS idx_touch_events_timestamp ON touch_events(timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
