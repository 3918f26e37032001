package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DailyStats summarizes one day.
type DailyStats struct {
	Date               string
	TotalTouches       int
	TotalDuration      time.Duration
	AvgDuration        time.Duration
	FirstTouch         string // HH:MM, empty without touches
	LastTouch          string
	HourlyDistribution map[int]int
}

// WeeklyStats summarizes seven consecutive days.
type WeeklyStats struct {
	StartDate    string
	EndDate      string
	TotalTouches int
	DailyAverage float64
	BestDay      string // fewest touches among days with a summary
	WorstDay     string // most touches, empty when there were none
	DailyCounts  map[string]int
}

// StreakInfo describes touch-free streaks in days.
type StreakInfo struct {
	Current       int
	Best          int
	LastTouchDate string
}

// SummaryRepository answers statistics queries over the daily summaries.
type SummaryRepository struct {
	db *sql.DB
}

// Summaries returns the daily summary repository for this store.
func (s *Store) Summaries() *SummaryRepository {
	return &SummaryRepository{db: s.db}
}

// Daily returns the stats for the calendar day of day. Days without data
// yield zero stats rather than ErrNotFound.
func (r *SummaryRepository) Daily(day time.Time) (*DailyStats, error) {
	stats := &DailyStats{
		Date:               day.Format(dateLayout),
		HourlyDistribution: make(map[int]int),
	}

	var (
		total       float64
		first, last sql.NullString
		hourlyJSON  string
	)
	err := r.db.QueryRow(
		`SELECT total_touches, total_duration, first_touch, last_touch, hourly_distribution
		 FROM daily_summaries WHERE date = ?`,
		stats.Date,
	).Scan(&stats.TotalTouches, &total, &first, &last, &hourlyJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stats, nil
		}
		return nil, err
	}

	stats.TotalDuration = secondsToDuration(total)
	stats.FirstTouch = first.String
	stats.LastTouch = last.String
	if stats.TotalTouches > 0 {
		stats.AvgDuration = stats.TotalDuration / time.Duration(stats.TotalTouches)
	}

	hourly := make(map[string]int)
	if err := json.Unmarshal([]byte(hourlyJSON), &hourly); err != nil {
		return nil, fmt.Errorf("decode hourly distribution: %w", err)
	}
	for k, v := range hourly {
		hour, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode hourly distribution: %w", err)
		}
		stats.HourlyDistribution[hour] = v
	}

	return stats, nil
}

// Weekly returns the stats for the seven days starting at start.
func (r *SummaryRepository) Weekly(start time.Time) (*WeeklyStats, error) {
	end := start.AddDate(0, 0, 6)
	stats := &WeeklyStats{
		StartDate:   start.Format(dateLayout),
		EndDate:     end.Format(dateLayout),
		DailyCounts: make(map[string]int, 7),
	}
	for i := 0; i < 7; i++ {
		stats.DailyCounts[start.AddDate(0, 0, i).Format(dateLayout)] = 0
	}

	rows, err := r.db.Query(
		`SELECT date, total_touches FROM daily_summaries
		 WHERE date >= ? AND date <= ? ORDER BY date`,
		stats.StartDate, stats.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	minTouches, maxTouches := -1, 0
	for rows.Next() {
		var (
			date  string
			count int
		)
		if err := rows.Scan(&date, &count); err != nil {
			return nil, err
		}

		stats.DailyCounts[date] = count
		stats.TotalTouches += count

		// Ties go to the later day.
		if minTouches < 0 || count <= minTouches {
			minTouches = count
			stats.BestDay = date
		}
		if count >= maxTouches {
			maxTouches = count
			stats.WorstDay = date
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if maxTouches == 0 {
		stats.WorstDay = ""
	}
	stats.DailyAverage = float64(stats.TotalTouches) / 7

	return stats, nil
}

// MonthlyCalendar maps day of month to touch count for days with a summary.
func (r *SummaryRepository) MonthlyCalendar(year int, month time.Month) (map[int]int, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	rows, err := r.db.Query(
		`SELECT date, total_touches FROM daily_summaries WHERE date >= ? AND date < ?`,
		first.Format(dateLayout), next.Format(dateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calendar := make(map[int]int)
	for rows.Next() {
		var (
			date  string
			count int
		)
		if err := rows.Scan(&date, &count); err != nil {
			return nil, err
		}
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse summary date %q: %w", date, err)
		}
		calendar[day.Day()] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return calendar, nil
}

// Streak computes touch-free streaks as of today. Current is the number of
// days since the last touch day (0 when that is today); Best is the longest
// gap between two touch days.
func (r *SummaryRepository) Streak(today time.Time) (*StreakInfo, error) {
	rows, err := r.db.Query(
		`SELECT date FROM daily_summaries WHERE total_touches > 0 ORDER BY date`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &StreakInfo{}
	var prev time.Time
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse summary date %q: %w", date, err)
		}

		if !prev.IsZero() {
			info.Best = max(info.Best, daysBetween(prev, day)-1)
		}
		prev = day
		info.LastTouchDate = date
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if prev.IsZero() {
		return info, nil
	}

	todayDate, _ := time.Parse(dateLayout, today.Format(dateLayout))
	info.Current = max(0, daysBetween(prev, todayDate))

	return info, nil
}

// HourlyPattern counts events per hour over the last days days, today
// included. Every hour 0-23 is present in the result.
func (r *SummaryRepository) HourlyPattern(days int, today time.Time) (map[int]int, error) {
	if days <= 0 {
		days = 7
	}
	start := today.AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := r.db.Query(
		`SELECT hour, COUNT(*) FROM touch_events WHERE date >= ? GROUP BY hour`,
		start,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pattern := make(map[int]int, 24)
	for h := 0; h < 24; h++ {
		pattern[h] = 0
	}
	for rows.Next() {
		var hour, count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, err
		}
		pattern[hour] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pattern, nil
}

// daysBetween counts whole calendar days from a to b, both UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
