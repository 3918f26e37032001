package capture

import (
	"sync"
	"time"
)

// Capture rates used by FrameRate when none are given.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// FrameRate picks the capture rate from recent motion. Motion switches to the
// active rate at once; the rate drops back to idle after a quiet period.
type FrameRate struct {
	mu         sync.Mutex
	idle       int
	active     int
	timeout    time.Duration
	current    int
	lastMotion time.Time
}

// NewFrameRate creates a rate governor starting at the idle rate.
// Non-positive arguments fall back to IdleFPS, ActiveFPS and IdleTimeout.
func NewFrameRate(idle, active int, timeout time.Duration) *FrameRate {
	if idle <= 0 {
		idle = IdleFPS
	}
	if active <= 0 {
		active = ActiveFPS
	}
	if timeout <= 0 {
		timeout = IdleTimeout
	}
	return &FrameRate{idle: idle, active: active, timeout: timeout, current: idle}
}

// Observe records one motion sample taken at now and returns the rate to use
// and whether it changed.
func (r *FrameRate) Observe(motion bool, now time.Time) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current
	switch {
	case motion:
		r.lastMotion = now
		r.current = r.active
	case r.current == r.active && now.Sub(r.lastMotion) > r.timeout:
		r.current = r.idle
	}
	return r.current, r.current != prev
}

// Current returns the rate chosen by the last Observe.
func (r *FrameRate) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Interval converts a rate to the ticker period.
func Interval(fps int) time.Duration {
	if fps <= 0 {
		fps = IdleFPS
	}
	return time.Second / time.Duration(fps)
}
