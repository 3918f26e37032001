package landmark

// HandAt returns a right hand with every landmark at (x, y). All probe points
// therefore coincide, which makes distance expectations easy to reason about.
func HandAt(x, y float64) HandSample {
	h := HandSample{
		Handedness: "Right",
		Score:      0.95,
	}
	for i := range h.Points {
		h.Points[i] = Point3D{X: x, Y: y}
	}
	return h
}

// FrontalHead returns a head facing the camera, centred horizontally, with both
// ears visible. Its center is (0.5, 0.4), its top 0.19 and its width 0.192.
func FrontalHead() *HeadRegion {
	leftEar := Point3D{X: 0.58, Y: 0.41, Z: 0.05}
	rightEar := Point3D{X: 0.42, Y: 0.41, Z: 0.05}
	return &HeadRegion{
		Nose:          Point3D{X: 0.5, Y: 0.4, Z: -0.1},
		LeftEar:       &leftEar,
		RightEar:      &rightEar,
		LeftShoulder:  Point3D{X: 0.7, Y: 0.7},
		RightShoulder: Point3D{X: 0.3, Y: 0.7},
	}
}

// OpenPalmLandmarks returns a right hand held open in the lower half of the frame,
// well away from FrontalHead.
func OpenPalmLandmarks() HandSample {
	landmarks := HandSample{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.95, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.92, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.88, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.84, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.80, Z: 0.03}

	// Fingers extended upward, shifted down so the tips stay below the chin
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.88, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.84, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.80, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.77, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.86, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.82, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.78, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.75, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.88, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.84, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.80, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.77, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.90, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.87, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.84, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.82, Z: 0.0}

	return landmarks
}
