package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/donttouch/internal/logging"
	"github.com/ayusman/donttouch/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func march(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
}

// newStatsFixture seeds three touches on March 4th, one on the 6th and one
// on the 12th, and pins "now" to the evening of the 12th.
func newStatsFixture(t *testing.T) (*StatsHandler, *store.Store) {
	t.Helper()
	s := newTestStore(t)

	events := []*store.TouchEvent{
		{Timestamp: march(4, 9, 15), Duration: 3 * time.Second, ClosestDistance: 0.05},
		{Timestamp: march(4, 9, 45), Duration: 4 * time.Second, ClosestDistance: 0.02},
		{Timestamp: march(4, 14, 5), Duration: 5 * time.Second, ClosestDistance: 0.1},
		{Timestamp: march(6, 9, 0), Duration: 3 * time.Second, ClosestDistance: 0.07},
		{Timestamp: march(12, 21, 30), Duration: 6 * time.Second, ClosestDistance: 0.01},
	}
	for _, e := range events {
		if err := s.Events().Log(e); err != nil {
			t.Fatalf("failed to log event: %v", err)
		}
	}

	h := NewStatsHandler(s, logging.Discard())
	h.now = func() time.Time { return march(12, 22, 0) }
	return h, s
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return rec
}

func TestStatsHandler_Daily(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp dailyResponse
	rec := get(t, h, "/api/stats/daily?date=2024-03-04", &resp)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if resp.TotalTouches != 3 || resp.TotalDuration != 12 || resp.AvgDuration != 4 {
		t.Errorf("response = %+v", resp)
	}
	if resp.FirstTouch != "09:15" || resp.LastTouch != "14:05" {
		t.Errorf("first/last = %s/%s", resp.FirstTouch, resp.LastTouch)
	}
	if resp.HourlyDistribution[9] != 2 || resp.HourlyDistribution[14] != 1 {
		t.Errorf("hourly = %v", resp.HourlyDistribution)
	}

	t.Run("defaults to today", func(t *testing.T) {
		var today dailyResponse
		get(t, h, "/api/stats/daily", &today)
		if today.Date != "2024-03-12" || today.TotalTouches != 1 {
			t.Errorf("response = %+v", today)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := get(t, h, "/api/stats/daily?date=yesterday", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestStatsHandler_Weekly(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp weeklyResponse
	get(t, h, "/api/stats/weekly?start=2024-03-04", &resp)

	if resp.StartDate != "2024-03-04" || resp.EndDate != "2024-03-10" {
		t.Errorf("range = %s..%s", resp.StartDate, resp.EndDate)
	}
	if resp.TotalTouches != 4 || len(resp.DailyCounts) != 7 {
		t.Errorf("response = %+v", resp)
	}
	if resp.BestDay != "2024-03-06" || resp.WorstDay != "2024-03-04" {
		t.Errorf("best/worst = %s/%s", resp.BestDay, resp.WorstDay)
	}
}

func TestStatsHandler_Calendar(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp calendarResponse
	get(t, h, "/api/stats/calendar?year=2024&month=3", &resp)

	want := map[int]int{4: 3, 6: 1, 12: 1}
	if len(resp.Days) != len(want) {
		t.Fatalf("days = %v, want %v", resp.Days, want)
	}
	for day, count := range want {
		if resp.Days[day] != count {
			t.Errorf("day %d = %d, want %d", day, resp.Days[day], count)
		}
	}

	for _, target := range []string{
		"/api/stats/calendar?month=13",
		"/api/stats/calendar?year=abc",
	} {
		if rec := get(t, h, target, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestStatsHandler_Streak(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp streakResponse
	get(t, h, "/api/stats/streak", &resp)

	if resp.Current != 0 || resp.Best != 5 || resp.LastTouchDate != "2024-03-12" {
		t.Errorf("response = %+v", resp)
	}
}

func TestStatsHandler_Hourly(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp hourlyResponse
	get(t, h, "/api/stats/hourly?days=7", &resp)

	if len(resp.Hours) != 24 {
		t.Fatalf("got %d hours, want 24", len(resp.Hours))
	}
	if resp.Hours[9] != 1 || resp.Hours[21] != 1 || resp.Hours[14] != 0 {
		t.Errorf("hours = %v", resp.Hours)
	}

	if rec := get(t, h, "/api/stats/hourly?days=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestStatsHandler_Recent(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp recentResponse
	get(t, h, "/api/stats/recent?limit=2", &resp)

	if len(resp.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(resp.Events))
	}
	if resp.Events[0].Duration != 6 || resp.Events[0].ClosestDistance != 0.01 {
		t.Errorf("newest event = %+v", resp.Events[0])
	}
}

func TestStatsHandler_Totals(t *testing.T) {
	h, _ := newStatsFixture(t)

	var resp totalsResponse
	get(t, h, "/api/stats/totals", &resp)

	if resp.TotalTouches != 5 || resp.TotalDuration != 21 || resp.DaysWithTouches != 3 {
		t.Errorf("response = %+v", resp)
	}
	if resp.AvgDuration < 4.19 || resp.AvgDuration > 4.21 {
		t.Errorf("AvgDuration = %v, want 4.2", resp.AvgDuration)
	}
}

func TestStatsHandler_Prune(t *testing.T) {
	h, s := newStatsFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/stats?keep_days=7", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp pruneResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Deleted != 3 || resp.KeepDays != 7 {
		t.Errorf("response = %+v", resp)
	}

	totals, err := s.Events().Totals()
	if err != nil {
		t.Fatal(err)
	}
	if totals.TotalTouches != 2 {
		t.Errorf("TotalTouches = %d after prune, want 2", totals.TotalTouches)
	}
}

func TestStatsHandler_Routing(t *testing.T) {
	h, _ := newStatsFixture(t)

	tests := []struct {
		name   string
		method string
		target string
		origin string
		want   int
	}{
		{"unknown report", http.MethodGet, "/api/stats/monthly", "", http.StatusNotFound},
		{"post report", http.MethodPost, "/api/stats/daily", "", http.StatusMethodNotAllowed},
		{"get root", http.MethodGet, "/api/stats", "", http.StatusMethodNotAllowed},
		{"bad keep_days", http.MethodDelete, "/api/stats?keep_days=-1", "", http.StatusBadRequest},
		{"cross-site prune", http.MethodDelete, "/api/stats?keep_days=0", "https://evil.example", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
