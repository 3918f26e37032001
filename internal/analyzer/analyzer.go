// Package analyzer decides, frame by frame, whether a hand has stayed close
// enough to the head for long enough to raise an alert.
//
// The Analyzer is a synchronous state machine:
//
//	IDLE -> DETECTING -> ALERT -> COOLDOWN -> IDLE
//
// It performs no I/O and holds no locks; callers must serialize calls to Analyze.
package analyzer

import (
	"math"
	"time"

	"github.com/ayusman/donttouch/internal/i18n"
	"github.com/ayusman/donttouch/internal/landmark"
)

// State is the alert state of the analyzer.
type State string

const (
	// StateIdle means no hand is near the head.
	StateIdle State = "idle"
	// StateDetecting means a hand is near the head and the trigger timer is running.
	StateDetecting State = "detecting"
	// StateAlert is reported on the frame where the alert fires.
	StateAlert State = "alert"
	// StateCooldown suppresses new alerts for a while after one fired.
	StateCooldown State = "cooldown"
)

// farDistance is reported when there is nothing to measure.
const farDistance = 1.0

// Thresholds configures when the analyzer considers a hand near and when it alerts.
type Thresholds struct {
	// DistanceThreshold is the normalized distance below which a hand counts as near.
	DistanceThreshold float64
	// TriggerTime is how long a hand must stay near before an alert fires.
	TriggerTime time.Duration
	// CooldownTime is how long detection pauses after an alert.
	CooldownTime time.Duration
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DistanceThreshold: 0.15,
		TriggerTime:       3 * time.Second,
		CooldownTime:      10 * time.Second,
	}
}

// Result is the outcome of analyzing one frame.
type Result struct {
	State             State
	HandNearHead      bool
	ProximityDuration time.Duration
	ClosestDistance   float64
	TimeUntilAlert    time.Duration
	Message           i18n.Message
}

// AlertFunc is called once each time an alert fires.
type AlertFunc func()

// StatisticsFunc is called once per alert with how long the hand had been near
// the head and the closest distance seen during that episode.
type StatisticsFunc func(duration time.Duration, closestDistance float64)

// Clock returns the current time.
type Clock func() time.Time

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds sets the initial thresholds. Zero fields keep their defaults.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		a.SetThresholds(t)
	}
}

// WithClock replaces the time source. The default is time.Now, whose readings
// carry a monotonic component so wall clock adjustments do not affect timing.
func WithClock(c Clock) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.now = c
		}
	}
}

// WithAlertFunc registers the alert callback.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *Analyzer) {
		a.onAlert = fn
	}
}

// WithStatisticsFunc registers the statistics callback.
func WithStatisticsFunc(fn StatisticsFunc) Option {
	return func(a *Analyzer) {
		a.onStatistics = fn
	}
}

// Analyzer tracks hand-to-head proximity across frames.
type Analyzer struct {
	thresholds Thresholds
	now        Clock

	state          State
	proximityStart time.Time // zero when no episode is running
	cooldownStart  time.Time // zero when not cooling down
	minDistance    float64   // closest distance seen in the current episode

	onAlert      AlertFunc
	onStatistics StatisticsFunc
}

// New creates an Analyzer in the idle state.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds:  DefaultThresholds(),
		now:         time.Now,
		state:       StateIdle,
		minDistance: farDistance,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetAlertFunc replaces the alert callback. Passing nil removes it.
func (a *Analyzer) SetAlertFunc(fn AlertFunc) {
	a.onAlert = fn
}

// SetStatisticsFunc replaces the statistics callback. Passing nil removes it.
func (a *Analyzer) SetStatisticsFunc(fn StatisticsFunc) {
	a.onStatistics = fn
}

// SetThresholds updates every non-zero field of t. Running timers keep their
// start times and are compared against the new values on the next call.
func (a *Analyzer) SetThresholds(t Thresholds) {
	a.SetDistanceThreshold(t.DistanceThreshold)
	a.SetTriggerTime(t.TriggerTime)
	a.SetCooldownTime(t.CooldownTime)
}

// SetDistanceThreshold sets the near distance. Values <= 0 are ignored.
func (a *Analyzer) SetDistanceThreshold(d float64) {
	if d <= 0 {
		return
	}
	a.thresholds.DistanceThreshold = d
}

// SetTriggerTime sets how long a hand must stay near. Values <= 0 are ignored.
func (a *Analyzer) SetTriggerTime(d time.Duration) {
	if d <= 0 {
		return
	}
	a.thresholds.TriggerTime = d
}

// SetCooldownTime sets the pause after an alert. Values <= 0 are ignored.
func (a *Analyzer) SetCooldownTime(d time.Duration) {
	if d <= 0 {
		return
	}
	a.thresholds.CooldownTime = d
}

// Thresholds returns the current thresholds.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// State returns the current state.
func (a *Analyzer) State() State {
	return a.state
}

// Analyze evaluates one frame. A nil head means no head was detected.
func (a *Analyzer) Analyze(hands []landmark.HandSample, head *landmark.HeadRegion) Result {
	now := a.now()

	if a.state == StateCooldown && !a.cooldownStart.IsZero() {
		elapsed := now.Sub(a.cooldownStart)
		if elapsed >= a.thresholds.CooldownTime {
			// Cooldown is over; this frame is evaluated normally below.
			a.state = StateIdle
			a.cooldownStart = time.Time{}
		} else {
			return a.cooldownResult(hands, head, a.thresholds.CooldownTime-elapsed)
		}
	}

	if head == nil {
		a.resetDetection()
		return a.idleResult(farDistance, i18n.KeyNoFace)
	}

	if len(hands) == 0 {
		a.resetDetection()
		return a.idleResult(farDistance, i18n.KeyMonitoring)
	}

	closest := ClosestDistance(hands, head)
	if closest >= a.thresholds.DistanceThreshold {
		a.resetDetection()
		return a.idleResult(closest, i18n.KeyMonitoring)
	}

	if a.proximityStart.IsZero() {
		a.proximityStart = now
		a.state = StateDetecting
		a.minDistance = closest
	} else {
		a.minDistance = math.Min(a.minDistance, closest)
	}

	duration := now.Sub(a.proximityStart)

	if duration >= a.thresholds.TriggerTime {
		a.triggerAlert(now, duration)
		return Result{
			State:             StateAlert,
			HandNearHead:      true,
			ProximityDuration: duration,
			ClosestDistance:   closest,
			Message:           i18n.Message{Key: i18n.KeyWarning},
		}
	}

	untilAlert := a.thresholds.TriggerTime - duration
	return Result{
		State:             StateDetecting,
		HandNearHead:      true,
		ProximityDuration: duration,
		ClosestDistance:   closest,
		TimeUntilAlert:    untilAlert,
		Message: i18n.Message{
			Key:  i18n.KeyDetecting,
			Args: map[string]float64{i18n.ArgTimeUntilAlert: untilAlert.Seconds()},
		},
	}
}

// cooldownResult reports the cooldown state. Nearness is still measured so the
// caller can tell whether the hand is still at the head, but episode tracking
// is left untouched: time spent near the head during cooldown is not credited.
func (a *Analyzer) cooldownResult(hands []landmark.HandSample, head *landmark.HeadRegion, remaining time.Duration) Result {
	closest := farDistance
	near := false
	if head != nil && len(hands) > 0 {
		closest = ClosestDistance(hands, head)
		near = closest < a.thresholds.DistanceThreshold
	}

	return Result{
		State:           StateCooldown,
		HandNearHead:    near,
		ClosestDistance: closest,
		Message: i18n.Message{
			Key:  i18n.KeyCooldown,
			Args: map[string]float64{i18n.ArgRemaining: remaining.Seconds()},
		},
	}
}

func (a *Analyzer) idleResult(closest float64, key string) Result {
	return Result{
		State:           StateIdle,
		ClosestDistance: closest,
		TimeUntilAlert:  a.thresholds.TriggerTime,
		Message:         i18n.Message{Key: key},
	}
}

// triggerAlert moves to cooldown and then notifies. The state is fully updated
// before either callback runs, so a panicking callback leaves it consistent.
func (a *Analyzer) triggerAlert(now time.Time, duration time.Duration) {
	a.state = StateCooldown
	a.cooldownStart = now
	a.proximityStart = time.Time{}

	closest := a.minDistance
	a.minDistance = farDistance

	if a.onStatistics != nil {
		a.onStatistics(duration, closest)
	}
	if a.onAlert != nil {
		a.onAlert()
	}
}

// resetDetection abandons the current episode. Cooldown is never touched here.
func (a *Analyzer) resetDetection() {
	if a.state == StateDetecting {
		a.state = StateIdle
	}
	a.proximityStart = time.Time{}
}

// Reset discards all history, including a running cooldown.
func (a *Analyzer) Reset() {
	a.state = StateIdle
	a.proximityStart = time.Time{}
	a.cooldownStart = time.Time{}
}
