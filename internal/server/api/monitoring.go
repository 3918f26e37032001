package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/analyzer"
	"github.com/ayusman/donttouch/internal/app"
)

// Monitor is the part of the app the monitoring endpoints drive.
type Monitor interface {
	IsEnabled() bool
	SetEnabled(enabled bool) error
	LastResult() app.Status
	Thresholds() analyzer.Thresholds
	Reset()
}

// MonitoringHandler serves /api/status, /api/monitoring and /api/analyzer/reset.
type MonitoringHandler struct {
	monitor Monitor
	log     logrus.FieldLogger
}

// NewMonitoringHandler creates a MonitoringHandler for m.
func NewMonitoringHandler(m Monitor, log logrus.FieldLogger) *MonitoringHandler {
	return &MonitoringHandler{monitor: m, log: log}
}

type thresholdsResponse struct {
	DistanceThreshold float64 `json:"distance_threshold"`
	TriggerTime       float64 `json:"trigger_time"`
	CooldownTime      float64 `json:"cooldown_time"`
}

type statusResponse struct {
	Enabled    bool               `json:"enabled"`
	Result     app.Status         `json:"result"`
	Thresholds thresholdsResponse `json:"thresholds"`
}

type monitoringRequest struct {
	Enabled *bool `json:"enabled"`
}

type monitoringResponse struct {
	Enabled bool `json:"enabled"`
}

// Status handles GET /api/status.
func (h *MonitoringHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t := h.monitor.Thresholds()
	writeJSON(w, http.StatusOK, statusResponse{
		Enabled: h.monitor.IsEnabled(),
		Result:  h.monitor.LastResult(),
		Thresholds: thresholdsResponse{
			DistanceThreshold: t.DistanceThreshold,
			TriggerTime:       seconds(t.TriggerTime),
			CooldownTime:      seconds(t.CooldownTime),
		},
	})
}

// Monitoring handles GET and POST /api/monitoring.
func (h *MonitoringHandler) Monitoring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, monitoringResponse{Enabled: h.monitor.IsEnabled()})

	case http.MethodPost:
		if !allowWrite(w, r, true) {
			return
		}
		var req monitoringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}

		if err := h.monitor.SetEnabled(*req.Enabled); err != nil {
			h.log.WithError(err).Error("failed to toggle monitoring")
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, monitoringResponse{Enabled: h.monitor.IsEnabled()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Reset handles POST /api/analyzer/reset.
func (h *MonitoringHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !allowWrite(w, r, true) {
		return
	}

	h.monitor.Reset()
	writeJSON(w, http.StatusOK, h.monitor.LastResult())
}
