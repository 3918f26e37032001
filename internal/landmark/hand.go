// Package landmark provides the per-frame hand and head geometry consumed by the proximity analyzer.
package landmark

import "time"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// palmIndices are the wrist and finger bases averaged into the hand center.
var palmIndices = [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Point3D represents a normalized 3D point. X and Y are fractions of the frame
// width and height; Z is depth relative to the wrist and may be negative.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandSample represents the 21 hand landmarks detected for one hand in one frame.
type HandSample struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Wrist returns the wrist position.
func (h *HandSample) Wrist() Point3D {
	return h.Points[Wrist]
}

// IndexTip returns the index fingertip position.
func (h *HandSample) IndexTip() Point3D {
	return h.Points[IndexTip]
}

// MiddleTip returns the middle fingertip position.
func (h *HandSample) MiddleTip() Point3D {
	return h.Points[MiddleTip]
}

// Center returns the approximate center of the hand: the mean of the wrist
// and the four finger base knuckles.
func (h *HandSample) Center() Point3D {
	var c Point3D
	for _, i := range palmIndices {
		c.X += h.Points[i].X
		c.Y += h.Points[i].Y
		c.Z += h.Points[i].Z
	}
	n := float64(len(palmIndices))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// ProbePoints returns the points checked against the head region, in order:
// center, index tip, middle tip, wrist.
func (h *HandSample) ProbePoints() [4]Point3D {
	return [4]Point3D{h.Center(), h.IndexTip(), h.MiddleTip(), h.Wrist()}
}

// Snapshot is everything the landmark models reported for one frame.
// Head is nil when no usable head region was found.
type Snapshot struct {
	Hands      []HandSample `json:"hands"`
	Head       *HeadRegion  `json:"head,omitempty"`
	CapturedAt time.Time    `json:"captured_at"`
}
