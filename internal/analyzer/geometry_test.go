package analyzer

import (
	"math"
	"testing"

	"github.com/ayusman/donttouch/internal/landmark"
)

// wideHead returns a head 0.3 wide centered at (0.5, 0.4).
func wideHead(t *testing.T) *landmark.HeadRegion {
	t.Helper()
	visible := func(x, y float64) landmark.PoseLandmark {
		return landmark.PoseLandmark{Point3D: landmark.Point3D{X: x, Y: y}, Visibility: 1}
	}
	head, ok := landmark.NewHeadRegion(
		visible(0.5, 0.4),
		visible(0.625, 0.4),
		visible(0.375, 0.4),
		visible(0.7, 0.7),
		visible(0.3, 0.7),
	)
	if !ok {
		t.Fatal("expected a head region")
	}
	if math.Abs(head.Width()-0.3) > epsilon {
		t.Fatalf("head width = %f, want 0.3", head.Width())
	}
	return head
}

func TestClosestDistance_HandAtHeadCenter(t *testing.T) {
	head := wideHead(t)
	hands := []landmark.HandSample{landmark.HandAt(0.5, 0.4)}

	if got := ClosestDistance(hands, head); got != 0 {
		t.Errorf("ClosestDistance() = %f, want 0", got)
	}

	a := New()
	result := a.Analyze(hands, head)
	if !result.HandNearHead {
		t.Error("expected hand near head")
	}
	if result.State != StateDetecting {
		t.Errorf("state = %s, want %s", result.State, StateDetecting)
	}
}

func TestClosestDistance_NoHands(t *testing.T) {
	if got := ClosestDistance(nil, landmark.FrontalHead()); !math.IsInf(got, 1) {
		t.Errorf("ClosestDistance() = %f, want +Inf", got)
	}
}

func TestClosestDistance_Regions(t *testing.T) {
	head := landmark.FrontalHead() // rx = 0.196, ry = 0.31, top at y = 0.19

	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{name: "inside the band within the head width", x: 0.55, y: 0.5, want: 0},
		{name: "inside the band past the head edge", x: 0.745, y: 0.4, want: 0.05},
		{name: "left side mirrors the right", x: 0.255, y: 0.4, want: 0.05},
		{name: "above the top of the head", x: 0.5 + 0.196*2, y: 0.19 - 0.31*0.5, want: 0.4},
		{name: "below the band", x: 0.5, y: 0.19 + 0.31*2, want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands := []landmark.HandSample{landmark.HandAt(tt.x, tt.y)}

			got := ClosestDistance(hands, head)

			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("ClosestDistance() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestClosestDistance_UsesNearestProbe(t *testing.T) {
	head := landmark.FrontalHead()

	far := landmark.HandAt(0.5, 0.95)
	hand := landmark.HandAt(0.5, 0.95)
	hand.Points[landmark.IndexTip] = landmark.Point3D{X: 0.5, Y: 0.4}

	if got := ClosestDistance([]landmark.HandSample{far}, head); got <= 0.15 {
		t.Fatalf("far hand distance = %f, want > 0.15", got)
	}
	if got := ClosestDistance([]landmark.HandSample{hand}, head); got != 0 {
		t.Errorf("distance with index tip on the face = %f, want 0", got)
	}
	if got := ClosestDistance([]landmark.HandSample{far, hand}, head); got != 0 {
		t.Errorf("distance across two hands = %f, want 0", got)
	}
}
