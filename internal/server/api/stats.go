package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/store"
)

// DefaultKeepDays is how many days of history a prune keeps when the request
// does not say.
const DefaultKeepDays = 90

// StatsHandler serves touch statistics under /api/stats.
type StatsHandler struct {
	store *store.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewStatsHandler creates a StatsHandler backed by s.
func NewStatsHandler(s *store.Store, log logrus.FieldLogger) *StatsHandler {
	return &StatsHandler{store: s, log: log, now: time.Now}
}

type dailyResponse struct {
	Date               string      `json:"date"`
	TotalTouches       int         `json:"total_touches"`
	TotalDuration      float64     `json:"total_duration"`
	AvgDuration        float64     `json:"avg_duration"`
	FirstTouch         string      `json:"first_touch,omitempty"`
	LastTouch          string      `json:"last_touch,omitempty"`
	HourlyDistribution map[int]int `json:"hourly_distribution"`
}

type weeklyResponse struct {
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	TotalTouches int            `json:"total_touches"`
	DailyAverage float64        `json:"daily_average"`
	BestDay      string         `json:"best_day,omitempty"`
	WorstDay     string         `json:"worst_day,omitempty"`
	DailyCounts  map[string]int `json:"daily_counts"`
}

type calendarResponse struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Days  map[int]int `json:"days"`
}

type streakResponse struct {
	Current       int    `json:"current"`
	Best          int    `json:"best"`
	LastTouchDate string `json:"last_touch_date,omitempty"`
}

type hourlyResponse struct {
	Days  int         `json:"days"`
	Hours map[int]int `json:"hours"`
}

type eventResponse struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	Duration        float64 `json:"duration"`
	ClosestDistance float64 `json:"closest_distance"`
}

type recentResponse struct {
	Events []eventResponse `json:"events"`
}

type totalsResponse struct {
	TotalTouches    int     `json:"total_touches"`
	TotalDuration   float64 `json:"total_duration"`
	AvgDuration     float64 `json:"avg_duration"`
	FirstDate       string  `json:"first_date,omitempty"`
	LastDate        string  `json:"last_date,omitempty"`
	DaysWithTouches int     `json:"days_with_touches"`
	AvgPerDay       float64 `json:"avg_per_day"`
}

type pruneResponse struct {
	Deleted  int64 `json:"deleted"`
	KeepDays int   `json:"keep_days"`
}

// ServeHTTP routes /api/stats and /api/stats/{report}.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := strings.TrimPrefix(r.URL.Path, "/api/stats")
	report = strings.Trim(report, "/")

	if report == "" {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// DELETE is preflighted by browsers, so only the origin is checked.
		if !allowWrite(w, r, false) {
			return
		}
		h.prune(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch report {
	case "daily":
		h.daily(w, r)
	case "weekly":
		h.weekly(w, r)
	case "calendar":
		h.calendar(w, r)
	case "streak":
		h.streak(w, r)
	case "hourly":
		h.hourly(w, r)
	case "recent":
		h.recent(w, r)
	case "totals":
		h.totals(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown report")
	}
}

func (h *StatsHandler) fail(w http.ResponseWriter, err error, msg string) {
	h.log.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

// daily handles GET /api/stats/daily?date=YYYY-MM-DD (default today).
func (h *StatsHandler) daily(w http.ResponseWriter, r *http.Request) {
	day, err := queryDate(r, "date", h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	stats, err := h.store.Summaries().Daily(day)
	if err != nil {
		h.fail(w, err, "Failed to load daily stats")
		return
	}

	writeJSON(w, http.StatusOK, dailyResponse{
		Date:               stats.Date,
		TotalTouches:       stats.TotalTouches,
		TotalDuration:      seconds(stats.TotalDuration),
		AvgDuration:        seconds(stats.AvgDuration),
		FirstTouch:         stats.FirstTouch,
		LastTouch:          stats.LastTouch,
		HourlyDistribution: stats.HourlyDistribution,
	})
}

// weekly handles GET /api/stats/weekly?start=YYYY-MM-DD (default six days ago).
func (h *StatsHandler) weekly(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start", h.now().AddDate(0, 0, -6))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date")
		return
	}

	stats, err := h.store.Summaries().Weekly(start)
	if err != nil {
		h.fail(w, err, "Failed to load weekly stats")
		return
	}

	writeJSON(w, http.StatusOK, weeklyResponse{
		StartDate:    stats.StartDate,
		EndDate:      stats.EndDate,
		TotalTouches: stats.TotalTouches,
		DailyAverage: stats.DailyAverage,
		BestDay:      stats.BestDay,
		WorstDay:     stats.WorstDay,
		DailyCounts:  stats.DailyCounts,
	})
}

// calendar handles GET /api/stats/calendar?year=&month= (default this month).
func (h *StatsHandler) calendar(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month")
		return
	}

	days, err := h.store.Summaries().MonthlyCalendar(year, time.Month(month))
	if err != nil {
		h.fail(w, err, "Failed to load calendar")
		return
	}

	writeJSON(w, http.StatusOK, calendarResponse{Year: year, Month: month, Days: days})
}

// streak handles GET /api/stats/streak.
func (h *StatsHandler) streak(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Summaries().Streak(h.now())
	if err != nil {
		h.fail(w, err, "Failed to load streak")
		return
	}

	writeJSON(w, http.StatusOK, streakResponse{
		Current:       info.Current,
		Best:          info.Best,
		LastTouchDate: info.LastTouchDate,
	})
}

// hourly handles GET /api/stats/hourly?days=N (default 7).
func (h *StatsHandler) hourly(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil || days < 1 {
		writeError(w, http.StatusBadRequest, "Invalid days")
		return
	}

	pattern, err := h.store.Summaries().HourlyPattern(days, h.now())
	if err != nil {
		h.fail(w, err, "Failed to load hourly pattern")
		return
	}

	writeJSON(w, http.StatusOK, hourlyResponse{Days: days, Hours: pattern})
}

// recent handles GET /api/stats/recent?limit=N (default 10).
func (h *StatsHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	events, err := h.store.Events().Recent(limit)
	if err != nil {
		h.fail(w, err, "Failed to load recent events")
		return
	}

	response := recentResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			ID:              e.ID,
			Timestamp:       e.Timestamp.Format(time.RFC3339),
			Duration:        seconds(e.Duration),
			ClosestDistance: e.ClosestDistance,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// totals handles GET /api/stats/totals.
func (h *StatsHandler) totals(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Events().Totals()
	if err != nil {
		h.fail(w, err, "Failed to load totals")
		return
	}

	writeJSON(w, http.StatusOK, totalsResponse{
		TotalTouches:    t.TotalTouches,
		TotalDuration:   seconds(t.TotalDuration),
		AvgDuration:     seconds(t.AvgDuration),
		FirstDate:       t.FirstDate,
		LastDate:        t.LastDate,
		DaysWithTouches: t.DaysWithTouches,
		AvgPerDay:       t.AvgPerDay,
	})
}

// prune handles DELETE /api/stats?keep_days=N (default 90).
func (h *StatsHandler) prune(w http.ResponseWriter, r *http.Request) {
	keep, err := queryInt(r, "keep_days", DefaultKeepDays)
	if err != nil || keep < 0 {
		writeError(w, http.StatusBadRequest, "Invalid keep_days")
		return
	}

	deleted, err := h.store.Events().DeleteBefore(h.now().AddDate(0, 0, -keep))
	if err != nil {
		h.fail(w, err, "Failed to prune history")
		return
	}

	h.log.WithFields(logrus.Fields{"deleted": deleted, "keep_days": keep}).Info("history pruned")
	writeJSON(w, http.StatusOK, pruneResponse{Deleted: deleted, KeepDays: keep})
}
