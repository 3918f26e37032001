// Package detector turns camera frames into hand and head landmarks.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/landmark"
)

// Detector finds hands and the head region in a frame.
type Detector interface {
	// Detect analyzes a BGR frame. A snapshot without hands or without a head
	// is a normal result, not an error.
	Detect(frame *gocv.Mat) (landmark.Snapshot, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds options for the MediaPipe detector.
type Config struct {
	// MaxHands is the maximum number of hands to track.
	MaxHands int
	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64
	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64
	// IdleTimeout stops the helper process after this long without frames.
	IdleTimeout time.Duration
	// Script overrides the landmark service location.
	Script string
	// Python overrides the interpreter.
	Python string
	// Clock stamps each snapshot. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the settings the service was tuned with.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
		Clock:           time.Now,
	}
}
