package app

import (
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/analyzer"
	"github.com/ayusman/donttouch/internal/capture"
	"github.com/ayusman/donttouch/internal/config"
	"github.com/ayusman/donttouch/internal/detector"
	"github.com/ayusman/donttouch/internal/landmark"
	"github.com/ayusman/donttouch/internal/logging"
	"github.com/ayusman/donttouch/internal/store"
)

func TestApp_Pipeline_StillHandKeepsTimerRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	// Identical frames: the motion detector never fires.
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	det.SetScene([]landmark.HandSample{landmark.HandAt(0.745, 0.4)}, landmark.FrontalHead())

	settings := config.Default()
	settings.TriggerTime = 1
	settings.FrameSkip = 1

	a, err := New(Config{
		Store:     s,
		Settings:  settings,
		PluginDir: t.TempDir(),
		Logger:    logging.Discard(),
		Camera:    camera,
		Detector:  det,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		totals, err := s.Events().Totals()
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		if totals.TotalTouches > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	totals, _ := s.Events().Totals()
	if totals.TotalTouches == 0 {
		t.Fatalf("no touch recorded after %d detector calls", det.Calls())
	}
	if camera.FPS() != capture.IdleFPS {
		t.Errorf("FPS = %d, want idle rate without motion", camera.FPS())
	}
	if a.LatestFrame() == nil {
		t.Error("expected a preview frame")
	}
	if st := a.LastResult().State; st != analyzer.StateAlert && st != analyzer.StateCooldown {
		t.Errorf("LastResult().State = %s, want alert or cooldown", st)
	}

	a.Stop()
	if camera.IsOpen() {
		t.Error("camera should be closed after Stop")
	}
}

func TestApp_Pipeline_FrameSkip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	det := detector.NewMockDetector()

	settings := config.Default()
	settings.FrameSkip = 3

	a, err := New(Config{
		Settings: settings,
		Logger:   logging.Discard(),
		Camera:   camera,
		Detector: det,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for camera.Reads() < 6 {
		time.Sleep(20 * time.Millisecond)
	}
	a.Stop()

	reads, calls := camera.Reads(), det.Calls()
	if calls != reads/3 {
		t.Errorf("detector ran %d times for %d frames, want every third frame", calls, reads)
	}
}
