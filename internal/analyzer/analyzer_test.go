package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/ayusman/donttouch/internal/i18n"
	"github.com/ayusman/donttouch/internal/landmark"
)

const epsilon = 1e-9

// fakeClock is a manually driven time source.
type fakeClock struct {
	base time.Time
	now  time.Time
}

func newFakeClock() *fakeClock {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &fakeClock{base: base, now: base}
}

// at moves the clock to the given number of seconds after the start.
func (c *fakeClock) at(seconds float64) {
	c.now = c.base.Add(time.Duration(seconds * float64(time.Second)))
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// recorder counts callback invocations.
type recorder struct {
	alerts    int
	durations []time.Duration
	closest   []float64
	order     []string
}

func (r *recorder) alert() {
	r.alerts++
	r.order = append(r.order, "alert")
}

func (r *recorder) statistics(d time.Duration, closest float64) {
	r.durations = append(r.durations, d)
	r.closest = append(r.closest, closest)
	r.order = append(r.order, "statistics")
}

func newTestAnalyzer(clock *fakeClock, rec *recorder, opts ...Option) *Analyzer {
	all := []Option{
		WithClock(clock.Now),
		WithAlertFunc(rec.alert),
		WithStatisticsFunc(rec.statistics),
	}
	return New(append(all, opts...)...)
}

// nearHand sits just outside the FrontalHead edge at a distance of 0.05.
func nearHand() []landmark.HandSample {
	return []landmark.HandSample{landmark.HandAt(0.745, 0.4)}
}

// farHand is well below the head.
func farHand() []landmark.HandSample {
	return []landmark.HandSample{landmark.HandAt(0.5, 0.95)}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestNew_Defaults(t *testing.T) {
	a := New()

	if a.State() != StateIdle {
		t.Errorf("initial state = %s, want %s", a.State(), StateIdle)
	}

	want := DefaultThresholds()
	if a.Thresholds() != want {
		t.Errorf("Thresholds() = %+v, want %+v", a.Thresholds(), want)
	}
	if want.DistanceThreshold != 0.15 || want.TriggerTime != 3*time.Second || want.CooldownTime != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", want)
	}
}

func TestAnalyzer_NoHead(t *testing.T) {
	clock := newFakeClock()
	a := newTestAnalyzer(clock, &recorder{})

	result := a.Analyze(nearHand(), nil)

	if result.State != StateIdle {
		t.Errorf("state = %s, want %s", result.State, StateIdle)
	}
	if result.HandNearHead {
		t.Error("expected hand not near head")
	}
	if result.ClosestDistance != 1.0 {
		t.Errorf("closest distance = %f, want 1.0", result.ClosestDistance)
	}
	if result.TimeUntilAlert != 3*time.Second {
		t.Errorf("time until alert = %v, want 3s", result.TimeUntilAlert)
	}
	if result.Message.Key != i18n.KeyNoFace {
		t.Errorf("message key = %q, want %q", result.Message.Key, i18n.KeyNoFace)
	}
}

func TestAnalyzer_NoHands(t *testing.T) {
	clock := newFakeClock()
	a := newTestAnalyzer(clock, &recorder{})

	result := a.Analyze(nil, landmark.FrontalHead())

	if result.State != StateIdle {
		t.Errorf("state = %s, want %s", result.State, StateIdle)
	}
	if result.ClosestDistance != 1.0 {
		t.Errorf("closest distance = %f, want 1.0", result.ClosestDistance)
	}
	if result.Message.Key != i18n.KeyMonitoring {
		t.Errorf("message key = %q, want %q", result.Message.Key, i18n.KeyMonitoring)
	}
}

func TestAnalyzer_HandAway(t *testing.T) {
	clock := newFakeClock()
	a := newTestAnalyzer(clock, &recorder{})

	result := a.Analyze(farHand(), landmark.FrontalHead())

	if result.State != StateIdle {
		t.Errorf("state = %s, want %s", result.State, StateIdle)
	}
	if result.HandNearHead {
		t.Error("expected hand not near head")
	}
	if result.ClosestDistance <= 0.15 || result.ClosestDistance == 1.0 {
		t.Errorf("closest distance = %f, want the measured far distance", result.ClosestDistance)
	}
	if result.ProximityDuration != 0 {
		t.Errorf("proximity duration = %v, want 0", result.ProximityDuration)
	}
	if result.TimeUntilAlert != 3*time.Second {
		t.Errorf("time until alert = %v, want 3s", result.TimeUntilAlert)
	}
}

func TestAnalyzer_AlertScenario(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	t.Run("near frames count down to the alert", func(t *testing.T) {
		for _, sec := range []float64{0, 1, 2} {
			clock.at(sec)
			result := a.Analyze(nearHand(), head)

			if result.State != StateDetecting {
				t.Fatalf("t=%v: state = %s, want %s", sec, result.State, StateDetecting)
			}
			if !result.HandNearHead {
				t.Errorf("t=%v: expected hand near head", sec)
			}
			if !approx(result.ClosestDistance, 0.05) {
				t.Errorf("t=%v: closest distance = %f, want 0.05", sec, result.ClosestDistance)
			}
			wantDuration := time.Duration(sec * float64(time.Second))
			if result.ProximityDuration != wantDuration {
				t.Errorf("t=%v: duration = %v, want %v", sec, result.ProximityDuration, wantDuration)
			}
			if result.TimeUntilAlert != 3*time.Second-wantDuration {
				t.Errorf("t=%v: time until alert = %v", sec, result.TimeUntilAlert)
			}
			if result.Message.Key != i18n.KeyDetecting {
				t.Errorf("t=%v: message key = %q", sec, result.Message.Key)
			}
			if got := result.Message.Args[i18n.ArgTimeUntilAlert]; !approx(got, 3-sec) {
				t.Errorf("t=%v: time_until_alert arg = %f, want %f", sec, got, 3-sec)
			}
		}
		if rec.alerts != 0 {
			t.Errorf("alert fired early: %d", rec.alerts)
		}
	})

	t.Run("alert fires at the trigger time", func(t *testing.T) {
		clock.at(3)
		result := a.Analyze(nearHand(), head)

		if result.State != StateAlert {
			t.Fatalf("state = %s, want %s", result.State, StateAlert)
		}
		if result.TimeUntilAlert != 0 {
			t.Errorf("time until alert = %v, want 0", result.TimeUntilAlert)
		}
		if result.ProximityDuration != 3*time.Second {
			t.Errorf("duration = %v, want 3s", result.ProximityDuration)
		}
		if result.Message.Key != i18n.KeyWarning {
			t.Errorf("message key = %q, want %q", result.Message.Key, i18n.KeyWarning)
		}
		if rec.alerts != 1 {
			t.Errorf("alerts = %d, want 1", rec.alerts)
		}
		if len(rec.durations) != 1 {
			t.Fatalf("statistics calls = %d, want 1", len(rec.durations))
		}
		if rec.durations[0] != 3*time.Second {
			t.Errorf("statistics duration = %v, want 3s", rec.durations[0])
		}
		if !approx(rec.closest[0], 0.05) {
			t.Errorf("statistics closest = %f, want 0.05", rec.closest[0])
		}
		if a.State() != StateCooldown {
			t.Errorf("internal state = %s, want %s", a.State(), StateCooldown)
		}
	})

	t.Run("cooldown holds while the hand stays near", func(t *testing.T) {
		prevRemaining := math.Inf(1)
		for _, sec := range []float64{3.5, 5, 8} {
			clock.at(sec)
			result := a.Analyze(nearHand(), head)

			if result.State != StateCooldown {
				t.Fatalf("t=%v: state = %s, want %s", sec, result.State, StateCooldown)
			}
			if !result.HandNearHead {
				t.Errorf("t=%v: cooldown should still report the hand as near", sec)
			}
			if result.ProximityDuration != 0 || result.TimeUntilAlert != 0 {
				t.Errorf("t=%v: duration/time until alert = %v/%v, want 0/0", sec, result.ProximityDuration, result.TimeUntilAlert)
			}
			if result.Message.Key != i18n.KeyCooldown {
				t.Errorf("t=%v: message key = %q", sec, result.Message.Key)
			}
			remaining := result.Message.Args[i18n.ArgRemaining]
			if !approx(remaining, 13-sec) {
				t.Errorf("t=%v: remaining = %f, want %f", sec, remaining, 13-sec)
			}
			if remaining >= prevRemaining {
				t.Errorf("t=%v: remaining %f did not decrease from %f", sec, remaining, prevRemaining)
			}
			prevRemaining = remaining
		}
		if rec.alerts != 1 {
			t.Errorf("alerts = %d, want 1", rec.alerts)
		}
	})

	t.Run("cooldown end starts a fresh episode in the same frame", func(t *testing.T) {
		clock.at(13)
		result := a.Analyze(nearHand(), head)

		if result.State != StateDetecting {
			t.Fatalf("state = %s, want %s", result.State, StateDetecting)
		}
		if result.ProximityDuration != 0 {
			t.Errorf("duration = %v, want 0", result.ProximityDuration)
		}
	})
}

func TestAnalyzer_IdleStability(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	inputs := []struct {
		hands []landmark.HandSample
		head  *landmark.HeadRegion
	}{
		{hands: nil, head: nil},
		{hands: nearHand(), head: nil},
		{hands: nil, head: head},
		{hands: []landmark.HandSample{}, head: head},
		{hands: farHand(), head: nil},
	}

	for i, in := range inputs {
		clock.at(float64(i))
		result := a.Analyze(in.hands, in.head)

		if result.State != StateIdle {
			t.Errorf("input %d: state = %s, want %s", i, result.State, StateIdle)
		}
		if result.ProximityDuration != 0 {
			t.Errorf("input %d: duration = %v, want 0", i, result.ProximityDuration)
		}
		if result.ClosestDistance != 1.0 {
			t.Errorf("input %d: closest = %f, want 1.0", i, result.ClosestDistance)
		}
	}
	if rec.alerts != 0 {
		t.Errorf("alerts = %d, want 0", rec.alerts)
	}
}

func TestAnalyzer_MissingInputsDuringCooldown(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	for _, sec := range []float64{0, 3} {
		clock.at(sec)
		a.Analyze(nearHand(), head)
	}
	if a.State() != StateCooldown {
		t.Fatalf("state = %s, want %s", a.State(), StateCooldown)
	}

	tests := []struct {
		name  string
		hands []landmark.HandSample
		head  *landmark.HeadRegion
	}{
		{name: "no head", hands: nearHand(), head: nil},
		{name: "no hands", hands: nil, head: head},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.at(4 + float64(i))
			result := a.Analyze(tt.hands, tt.head)

			if result.State != StateCooldown {
				t.Errorf("state = %s, want %s", result.State, StateCooldown)
			}
			if result.HandNearHead {
				t.Error("expected hand not near head without both inputs")
			}
			if result.ClosestDistance != 1.0 {
				t.Errorf("closest = %f, want 1.0", result.ClosestDistance)
			}
			if result.ProximityDuration != 0 {
				t.Errorf("duration = %v, want 0", result.ProximityDuration)
			}
		})
	}
}

func TestAnalyzer_NoHeadResetsDetection(t *testing.T) {
	clock := newFakeClock()
	a := newTestAnalyzer(clock, &recorder{})
	head := landmark.FrontalHead()

	clock.at(0)
	a.Analyze(nearHand(), head)
	clock.at(2)
	a.Analyze(nearHand(), head)

	clock.at(2.5)
	result := a.Analyze(nearHand(), nil)
	if result.State != StateIdle || result.Message.Key != i18n.KeyNoFace || result.ClosestDistance != 1.0 {
		t.Fatalf("unexpected result after losing the face: %+v", result)
	}

	clock.at(3)
	result = a.Analyze(nearHand(), head)
	if result.State != StateDetecting {
		t.Fatalf("state = %s, want %s", result.State, StateDetecting)
	}
	if result.ProximityDuration != 0 {
		t.Errorf("duration = %v, want a fresh episode", result.ProximityDuration)
	}
}

func TestAnalyzer_MonotonicDetection(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	var prev time.Duration = -1
	alerts := 0
	for sec := 0.0; sec <= 3.0; sec += 0.25 {
		clock.at(sec)
		result := a.Analyze(nearHand(), head)

		if result.ProximityDuration <= prev {
			t.Errorf("t=%v: duration %v did not increase from %v", sec, result.ProximityDuration, prev)
		}
		prev = result.ProximityDuration

		if result.State == StateAlert {
			alerts++
		} else if result.State != StateDetecting {
			t.Errorf("t=%v: state = %s, want detecting until the alert", sec, result.State)
		}
	}

	if alerts != 1 || rec.alerts != 1 {
		t.Errorf("alert states = %d, callbacks = %d, want 1 and 1", alerts, rec.alerts)
	}
}

func TestAnalyzer_CooldownGating(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	var alertTimes []float64
	for sec := 0.0; sec <= 25; sec += 0.5 {
		clock.at(sec)
		if result := a.Analyze(nearHand(), head); result.State == StateAlert {
			alertTimes = append(alertTimes, sec)
		}
	}

	want := []float64{3, 16}
	if len(alertTimes) != len(want) {
		t.Fatalf("alert times = %v, want %v", alertTimes, want)
	}
	for i := range want {
		if alertTimes[i] != want[i] {
			t.Errorf("alert %d at t=%v, want t=%v", i, alertTimes[i], want[i])
		}
	}
	if rec.alerts != len(want) {
		t.Errorf("alert callbacks = %d, want %d", rec.alerts, len(want))
	}
}

func TestAnalyzer_ThresholdBoundary(t *testing.T) {
	head := landmark.FrontalHead()
	hands := nearHand()
	d := ClosestDistance(hands, head)

	tests := []struct {
		name      string
		threshold float64
		wantNear  bool
	}{
		{name: "distance equal to threshold is not near", threshold: d, wantNear: false},
		{name: "distance just below threshold is near", threshold: d + 1e-9, wantNear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(WithThresholds(Thresholds{DistanceThreshold: tt.threshold}))

			result := a.Analyze(hands, head)

			if result.HandNearHead != tt.wantNear {
				t.Errorf("HandNearHead = %v, want %v", result.HandNearHead, tt.wantNear)
			}
		})
	}
}

func TestAnalyzer_ResetOnWithdrawal(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	for _, sec := range []float64{0, 1, 2} {
		clock.at(sec)
		a.Analyze(nearHand(), head)
	}

	clock.at(2.5)
	if result := a.Analyze(farHand(), head); result.State != StateIdle {
		t.Fatalf("state after withdrawal = %s, want %s", result.State, StateIdle)
	}

	clock.at(3)
	result := a.Analyze(nearHand(), head)
	if result.State != StateDetecting || result.ProximityDuration != 0 {
		t.Fatalf("expected a fresh episode, got %s after %v", result.State, result.ProximityDuration)
	}

	clock.at(5.9)
	if result := a.Analyze(nearHand(), head); result.State != StateDetecting {
		t.Errorf("t=5.9: state = %s, want %s", result.State, StateDetecting)
	}

	clock.at(6)
	if result := a.Analyze(nearHand(), head); result.State != StateAlert {
		t.Errorf("t=6: state = %s, want %s", result.State, StateAlert)
	}
	if rec.alerts != 1 {
		t.Errorf("alerts = %d, want 1", rec.alerts)
	}
}

func TestAnalyzer_MinimumDistanceTracking(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	frames := []struct {
		sec   float64
		hands []landmark.HandSample
	}{
		{sec: 0, hands: nearHand()},
		{sec: 1, hands: []landmark.HandSample{landmark.HandAt(0.5, 0.4)}}, // inside the head band
		{sec: 2, hands: nearHand()},
		{sec: 3, hands: nearHand()},
	}
	for _, f := range frames {
		clock.at(f.sec)
		a.Analyze(f.hands, head)
	}

	if len(rec.closest) != 1 {
		t.Fatalf("statistics calls = %d, want 1", len(rec.closest))
	}
	if rec.closest[0] != 0 {
		t.Errorf("episode minimum = %f, want 0", rec.closest[0])
	}

	// The next episode starts its minimum from scratch.
	for _, sec := range []float64{13, 16} {
		clock.at(sec)
		a.Analyze(nearHand(), head)
	}
	if len(rec.closest) != 2 {
		t.Fatalf("statistics calls = %d, want 2", len(rec.closest))
	}
	if !approx(rec.closest[1], 0.05) {
		t.Errorf("second episode minimum = %f, want 0.05", rec.closest[1])
	}
}

func TestAnalyzer_CallbackOrder(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	for _, sec := range []float64{0, 3} {
		clock.at(sec)
		a.Analyze(nearHand(), head)
	}

	if len(rec.order) != 2 || rec.order[0] != "statistics" || rec.order[1] != "alert" {
		t.Errorf("callback order = %v, want [statistics alert]", rec.order)
	}
}

func TestAnalyzer_PanickingCallbackLeavesStateConsistent(t *testing.T) {
	clock := newFakeClock()
	a := New(
		WithClock(clock.Now),
		WithAlertFunc(func() { panic("notifier exploded") }),
	)
	head := landmark.FrontalHead()

	clock.at(0)
	a.Analyze(nearHand(), head)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected the callback panic to propagate")
			}
		}()
		clock.at(3)
		a.Analyze(nearHand(), head)
	}()

	if a.State() != StateCooldown {
		t.Errorf("state = %s, want %s", a.State(), StateCooldown)
	}

	clock.at(4)
	if result := a.Analyze(nearHand(), head); result.State != StateCooldown {
		t.Errorf("state after panic = %s, want %s", result.State, StateCooldown)
	}
}

func TestAnalyzer_Reset(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	a := newTestAnalyzer(clock, rec)
	head := landmark.FrontalHead()

	for _, sec := range []float64{0, 3} {
		clock.at(sec)
		a.Analyze(nearHand(), head)
	}
	if a.State() != StateCooldown {
		t.Fatalf("state = %s, want %s", a.State(), StateCooldown)
	}

	a.Reset()
	if a.State() != StateIdle {
		t.Errorf("state after Reset = %s, want %s", a.State(), StateIdle)
	}

	clock.at(4)
	result := a.Analyze(nearHand(), head)
	if result.State != StateDetecting || result.ProximityDuration != 0 {
		t.Errorf("expected detection to restart after Reset, got %s after %v", result.State, result.ProximityDuration)
	}
}

func TestAnalyzer_SetThresholds(t *testing.T) {
	t.Run("applies non-zero fields only", func(t *testing.T) {
		a := New()

		a.SetThresholds(Thresholds{TriggerTime: 5 * time.Second})

		got := a.Thresholds()
		if got.TriggerTime != 5*time.Second {
			t.Errorf("TriggerTime = %v, want 5s", got.TriggerTime)
		}
		if got.DistanceThreshold != 0.15 || got.CooldownTime != 10*time.Second {
			t.Errorf("unchanged fields modified: %+v", got)
		}
	})

	t.Run("ignores non-positive values", func(t *testing.T) {
		a := New()

		a.SetDistanceThreshold(-1)
		a.SetTriggerTime(0)
		a.SetCooldownTime(-time.Second)

		if a.Thresholds() != DefaultThresholds() {
			t.Errorf("Thresholds() = %+v, want defaults", a.Thresholds())
		}
	})

	t.Run("running episode is compared against new values", func(t *testing.T) {
		clock := newFakeClock()
		rec := &recorder{}
		a := newTestAnalyzer(clock, rec)
		head := landmark.FrontalHead()

		clock.at(0)
		a.Analyze(nearHand(), head)
		clock.at(1)
		a.Analyze(nearHand(), head)

		a.SetTriggerTime(time.Second + 500*time.Millisecond)
		if a.State() != StateDetecting {
			t.Fatalf("SetTriggerTime reset the state to %s", a.State())
		}

		clock.at(1.5)
		result := a.Analyze(nearHand(), head)
		if result.State != StateAlert {
			t.Errorf("state = %s, want %s", result.State, StateAlert)
		}
		if result.ProximityDuration != 1500*time.Millisecond {
			t.Errorf("duration = %v, want 1.5s", result.ProximityDuration)
		}
	})

	t.Run("shorter cooldown ends a running cooldown", func(t *testing.T) {
		clock := newFakeClock()
		a := newTestAnalyzer(clock, &recorder{})
		head := landmark.FrontalHead()

		for _, sec := range []float64{0, 3} {
			clock.at(sec)
			a.Analyze(nearHand(), head)
		}

		a.SetCooldownTime(2 * time.Second)

		clock.at(5)
		if result := a.Analyze(nearHand(), head); result.State != StateDetecting {
			t.Errorf("state = %s, want %s", result.State, StateDetecting)
		}
	})
}
