package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/landmark"
)

// MockDetector returns a preset snapshot. Safe for concurrent use.
type MockDetector struct {
	mu       sync.Mutex
	snapshot landmark.Snapshot
	err      error
	calls    int
}

// NewMockDetector creates a detector that sees nothing.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSnapshot sets what Detect returns.
func (m *MockDetector) SetSnapshot(s landmark.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
}

// SetScene is shorthand for a snapshot with the given hands and head.
func (m *MockDetector) SetScene(hands []landmark.HandSample, head *landmark.HeadRegion) {
	m.SetSnapshot(landmark.Snapshot{Hands: hands, Head: head})
}

// SetError makes Detect fail with err. Nil clears it.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the preset snapshot or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (landmark.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return landmark.Snapshot{}, m.err
	}
	return m.snapshot, nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *MockDetector) Close() error {
	return nil
}
