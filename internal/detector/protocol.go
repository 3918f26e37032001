package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/donttouch/internal/landmark"
)

// response is one JSON line written by the landmark service.
type response struct {
	Hands []jsonHand `json:"hands"`
	Pose  *jsonPose  `json:"pose"`
	Error string     `json:"error,omitempty"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// jsonPose carries the pose landmarks the head region is built from.
type jsonPose struct {
	Nose          jsonPoint `json:"nose"`
	LeftEar       jsonPoint `json:"left_ear"`
	RightEar      jsonPoint `json:"right_ear"`
	LeftShoulder  jsonPoint `json:"left_shoulder"`
	RightShoulder jsonPoint `json:"right_shoulder"`
}

// decodeResponse parses one service line into a snapshot stamped with at.
func decodeResponse(line []byte, at time.Time) (landmark.Snapshot, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return landmark.Snapshot{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return landmark.Snapshot{}, fmt.Errorf("landmark service: %w", errors.New(resp.Error))
	}

	snap := landmark.Snapshot{
		Hands:      make([]landmark.HandSample, 0, len(resp.Hands)),
		CapturedAt: at,
	}
	for _, h := range resp.Hands {
		if sample, ok := h.toSample(); ok {
			snap.Hands = append(snap.Hands, sample)
		}
	}
	if resp.Pose != nil {
		snap.Head = resp.Pose.toHead()
	}

	return snap, nil
}

// toSample reports false for a hand without the full set of landmarks;
// padding it would place phantom points at the frame origin.
func (h jsonHand) toSample() (landmark.HandSample, bool) {
	if len(h.Points) < landmark.NumLandmarks {
		return landmark.HandSample{}, false
	}
	s := landmark.HandSample{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := range landmark.NumLandmarks {
		s.Points[i] = h.Points[i].point()
	}
	return s, true
}

// toHead returns nil when the nose or a shoulder is not visible enough.
func (p jsonPose) toHead() *landmark.HeadRegion {
	head, ok := landmark.NewHeadRegion(
		p.Nose.pose(),
		p.LeftEar.pose(),
		p.RightEar.pose(),
		p.LeftShoulder.pose(),
		p.RightShoulder.pose(),
	)
	if !ok {
		return nil
	}
	return head
}

func (p jsonPoint) point() landmark.Point3D {
	return landmark.Point3D{X: p.X, Y: p.Y, Z: p.Z}
}

func (p jsonPoint) pose() landmark.PoseLandmark {
	return landmark.PoseLandmark{Point3D: p.point(), Visibility: p.Visibility}
}
