package landmark

import "math"

// MinVisibility is the pose landmark visibility below which a landmark is treated as missing.
const MinVisibility = 0.3

// Head estimation factors.
const (
	headHeightFactor    = 0.7 // fraction of nose-to-shoulder distance above the nose
	earWidthFactor      = 1.2 // head width relative to ear separation
	shoulderWidthFactor = 0.5 // head width relative to shoulder separation
)

// PoseLandmark is a pose model keypoint together with its visibility score.
type PoseLandmark struct {
	Point3D
	Visibility float64 `json:"visibility"`
}

// HeadRegion is the detected head area for one frame. Nose and both shoulders are
// always present; ears are nil when the pose model could not see them.
type HeadRegion struct {
	Nose          Point3D  `json:"nose"`
	LeftEar       *Point3D `json:"left_ear,omitempty"`
	RightEar      *Point3D `json:"right_ear,omitempty"`
	LeftShoulder  Point3D  `json:"left_shoulder"`
	RightShoulder Point3D  `json:"right_shoulder"`
}

// NewHeadRegion builds a HeadRegion from raw pose landmarks.
// It returns false when the nose or either shoulder is not visible enough.
func NewHeadRegion(nose, leftEar, rightEar, leftShoulder, rightShoulder PoseLandmark) (*HeadRegion, bool) {
	if !visible(nose) || !visible(leftShoulder) || !visible(rightShoulder) {
		return nil, false
	}

	h := &HeadRegion{
		Nose:          nose.Point3D,
		LeftShoulder:  leftShoulder.Point3D,
		RightShoulder: rightShoulder.Point3D,
	}
	if visible(leftEar) {
		p := leftEar.Point3D
		h.LeftEar = &p
	}
	if visible(rightEar) {
		p := rightEar.Point3D
		h.RightEar = &p
	}
	return h, true
}

func visible(p PoseLandmark) bool {
	return p.Visibility >= MinVisibility
}

// Center returns the head center, taken as the nose position (Z is zero).
func (h *HeadRegion) Center() Point3D {
	return Point3D{X: h.Nose.X, Y: h.Nose.Y}
}

// Top estimates the top of the head. Head height is approximated as 0.7 of the
// vertical distance between the nose and the shoulder midpoint. Y is clamped at 0.
func (h *HeadRegion) Top() Point3D {
	shoulderY := (h.LeftShoulder.Y + h.RightShoulder.Y) / 2
	height := math.Abs(shoulderY-h.Nose.Y) * headHeightFactor
	return Point3D{X: h.Nose.X, Y: math.Max(0, h.Nose.Y-height)}
}

// Width estimates the head width from ear separation, falling back to
// half the shoulder width when either ear is missing.
func (h *HeadRegion) Width() float64 {
	if h.LeftEar != nil && h.RightEar != nil {
		return math.Abs(h.LeftEar.X-h.RightEar.X) * earWidthFactor
	}
	return math.Abs(h.LeftShoulder.X-h.RightShoulder.X) * shoulderWidthFactor
}
