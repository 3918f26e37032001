package app

import (
	"time"

	"github.com/ayusman/donttouch/internal/analyzer"
	"github.com/ayusman/donttouch/internal/i18n"
	"github.com/ayusman/donttouch/internal/landmark"
)

// Status is one analyzer result prepared for display. Durations are in seconds.
type Status struct {
	State             analyzer.State `json:"state"`
	HandNearHead      bool           `json:"hand_near_head"`
	ProximityDuration float64        `json:"proximity_duration"`
	ClosestDistance   float64        `json:"closest_distance"`
	TimeUntilAlert    float64        `json:"time_until_alert"`
	Message           string         `json:"message"`
	MessageKey        string         `json:"message_key"`
	Hands             int            `json:"hands"`
	HeadDetected      bool           `json:"head_detected"`
	At                time.Time      `json:"at"`
}

func (a *App) status(r analyzer.Result, s landmark.Snapshot) Status {
	at := s.CapturedAt
	if at.IsZero() {
		at = a.now()
	}
	return Status{
		State:             r.State,
		HandNearHead:      r.HandNearHead,
		ProximityDuration: r.ProximityDuration.Seconds(),
		ClosestDistance:   r.ClosestDistance,
		TimeUntilAlert:    r.TimeUntilAlert.Seconds(),
		Message:           r.Message.Render(a.catalog),
		MessageKey:        r.Message.Key,
		Hands:             len(s.Hands),
		HeadDetected:      s.Head != nil,
		At:                at,
	}
}

// idleStatus is reported before the first frame and after a reset.
// Callers hold analyzeMu.
func (a *App) idleStatus() Status {
	return a.status(analyzer.Result{
		State:           analyzer.StateIdle,
		ClosestDistance: 1.0,
		TimeUntilAlert:  a.analyzer.Thresholds().TriggerTime,
		Message:         i18n.Message{Key: i18n.KeyNoFace},
	}, landmark.Snapshot{})
}
