package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21 // Gaussian kernel edge, in pixels
	pixelDiffGate = 25 // grey-level change that counts a pixel as moved
)

// DefaultMotionThreshold is the share of moved pixels, in percent, that
// counts as motion.
const DefaultMotionThreshold = 1.0

// MotionDetector compares each frame with the previous one. Its result only
// steers the capture rate; analysis runs on every sampled frame regardless.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector. Thresholds <= 0 use
// DefaultMotionThreshold.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether the frame moved more than the threshold, and the
// percentage of pixels that changed. The first frame after creation or Reset
// only primes the detector and never counts as motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := smoothGray(frame)

	if !m.primed {
		m.swap(current)
		m.primed = true
		return false, 0
	}

	changed := changedPercent(current, m.prev)
	m.swap(current)

	return changed > m.threshold, changed
}

// swap takes ownership of next as the reference frame.
func (m *MotionDetector) swap(next gocv.Mat) {
	m.prev.Close()
	m.prev = next
}

// smoothGray returns a blurred greyscale copy of frame.
func smoothGray(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	out := gocv.NewMat()
	gocv.GaussianBlur(gray, &out, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)
	return out
}

// changedPercent returns the share of pixels whose grey level differs by more
// than pixelDiffGate.
func changedPercent(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDiffGate, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}

// Reset forgets the reference frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.swap(gocv.NewMat())
	m.primed = false
}

// Close releases the reference frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold changes the motion threshold in percent.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}
