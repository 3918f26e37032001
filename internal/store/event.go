package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TouchEvent is one alert raised by the analyzer.
type TouchEvent struct {
	ID              string
	Timestamp       time.Time
	Duration        time.Duration // how long the hand stayed near before the alert
	ClosestDistance float64       // minimum distance seen during the episode
}

// Totals aggregates every event ever logged.
type Totals struct {
	TotalTouches    int
	TotalDuration   time.Duration
	AvgDuration     time.Duration
	FirstDate       string
	LastDate        string
	DaysWithTouches int
	AvgPerDay       float64
}

// EventRepository stores touch events and keeps the daily summaries current.
type EventRepository struct {
	db *sql.DB
}

// Events returns the touch event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Log inserts e and refreshes the summary of its day in one transaction.
// A missing ID or timestamp is filled in.
func (r *EventRepository) Log(e *TouchEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	date := e.Timestamp.Format(dateLayout)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO touch_events (id, timestamp, duration, closest_distance, date, hour)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Duration.Seconds(), e.ClosestDistance, date, e.Timestamp.Hour(),
	)
	if err != nil {
		return fmt.Errorf("insert touch event: %w", err)
	}

	if err := refreshSummary(tx, date); err != nil {
		return fmt.Errorf("refresh daily summary: %w", err)
	}

	return tx.Commit()
}

// refreshSummary rebuilds the daily_summaries row for date from its events.
func refreshSummary(tx *sql.Tx, date string) error {
	rows, err := tx.Query(
		`SELECT timestamp, duration, hour FROM touch_events
		 WHERE date = ? ORDER BY timestamp`,
		date,
	)
	if err != nil {
		return err
	}

	var (
		count       int
		total       float64
		first, last time.Time
	)
	hourly := make(map[string]int)
	for rows.Next() {
		var (
			ts       time.Time
			duration float64
			hour     int
		)
		if err := rows.Scan(&ts, &duration, &hour); err != nil {
			rows.Close()
			return err
		}
		if count == 0 {
			first = ts
		}
		last = ts
		count++
		total += duration
		hourly[strconv.Itoa(hour)]++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if count == 0 {
		return nil
	}

	distribution, err := json.Marshal(hourly)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO daily_summaries
		 (date, total_touches, total_duration, first_touch, last_touch, hourly_distribution)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		date, count, total, first.Format(timeLayout), last.Format(timeLayout), string(distribution),
	)
	return err
}

// Recent returns up to limit events, most recent first.
func (r *EventRepository) Recent(limit int) ([]*TouchEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(
		`SELECT id, timestamp, duration, closest_distance
		 FROM touch_events ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*TouchEvent
	for rows.Next() {
		e := &TouchEvent{}
		var duration float64
		if err := rows.Scan(&e.ID, &e.Timestamp, &duration, &e.ClosestDistance); err != nil {
			return nil, err
		}
		e.Duration = secondsToDuration(duration)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Totals returns statistics over all logged events.
func (r *EventRepository) Totals() (*Totals, error) {
	var (
		t           Totals
		total       float64
		first, last sql.NullString
	)

	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(duration), 0), MIN(date), MAX(date), COUNT(DISTINCT date)
		 FROM touch_events`,
	).Scan(&t.TotalTouches, &total, &first, &last, &t.DaysWithTouches)
	if err != nil {
		return nil, err
	}

	t.TotalDuration = secondsToDuration(total)
	t.FirstDate = first.String
	t.LastDate = last.String
	if t.TotalTouches > 0 {
		t.AvgDuration = t.TotalDuration / time.Duration(t.TotalTouches)
	}
	if t.DaysWithTouches > 0 {
		t.AvgPerDay = float64(t.TotalTouches) / float64(t.DaysWithTouches)
	}

	return &t, nil
}

// DeleteBefore removes events and summaries dated before the day of cutoff.
// It returns the number of events deleted.
func (r *EventRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	date := cutoff.Format(dateLayout)

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM touch_events WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("delete touch events: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`DELETE FROM daily_summaries WHERE date < ?`, date); err != nil {
		return 0, fmt.Errorf("delete daily summaries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return deleted, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
