package analyzer

import (
	"math"

	"github.com/ayusman/donttouch/internal/landmark"
)

// Elliptical band tuning.
const (
	radiusPadding = 0.1 // added to both normalized radii so tiny heads still have a band
	bandHeight    = 1.5 // vertical extent of the band in head-height units
	distanceScale = 0.2 // maps band units back to roughly frame-normalized distance
)

// ClosestDistance returns the smallest distance between any probe point of any
// hand and the head region. Points are measured against an elliptical band
// that starts at the top of the head and extends 1.5 head heights down: inside
// the band only horizontal overshoot past the head edge counts, outside it the
// distance falls off euclidean-style. Returns +Inf when there are no hands.
func ClosestDistance(hands []landmark.HandSample, head *landmark.HeadRegion) float64 {
	center := head.Center()
	top := head.Top()
	rx := head.Width()/2 + radiusPadding
	ry := math.Abs(center.Y-top.Y) + radiusPadding

	closest := math.Inf(1)
	for i := range hands {
		for _, p := range hands[i].ProbePoints() {
			dx := (p.X - center.X) / rx
			dy := (p.Y - top.Y) / ry
			closest = math.Min(closest, bandDistance(dx, dy))
		}
	}
	return closest
}

// bandDistance measures a point given in normalized head coordinates.
func bandDistance(dx, dy float64) float64 {
	var d float64
	if dy >= 0 && dy <= bandHeight {
		d = math.Max(0, math.Abs(dx)-1)
	} else {
		d = math.Sqrt(dx*dx + math.Pow(math.Max(0, dy-1), 2))
	}
	return math.Max(0, d*distanceScale)
}
