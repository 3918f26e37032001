package app

import (
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/capture"
	"github.com/ayusman/donttouch/internal/landmark"
)

// runPipeline is the monitoring loop.
//
// Every tick reads a frame and feeds the motion detector, which only picks
// the capture rate: a still hand held at the face must keep the analyzer's
// timer running, so analysis never waits for motion. Every FrameSkip-th frame
// goes through landmark detection and the analyzer.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	a.mu.RLock()
	camera := a.camera
	a.mu.RUnlock()

	ticker := time.NewTicker(capture.Interval(a.rate.Current()))
	defer ticker.Stop()

	var (
		frames int
		last   landmark.Snapshot
	)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frames++
		fps, changed := a.tick(camera, frames, &last)
		if changed {
			ticker.Reset(capture.Interval(fps))
		}
	}
}

// tick handles one frame. It returns the capture rate and whether it changed.
func (a *App) tick(camera capture.Camera, n int, last *landmark.Snapshot) (int, bool) {
	frame, err := camera.ReadFrame()
	if err != nil {
		a.log.WithError(err).Debug("frame read failed")
		return 0, false
	}
	defer frame.Close()

	moved, pct := a.motion.Detect(frame)
	fps, changed := a.rate.Observe(moved, a.now())
	if changed {
		camera.SetFPS(fps)
		a.log.WithFields(logrus.Fields{
			"fps":         fps,
			"changed_pct": pct,
		}).Debug("capture rate switched")
	}

	if skip := a.Settings().FrameSkip; skip <= 1 || n%skip == 0 {
		snap, err := a.Detector().Detect(frame)
		if err != nil {
			a.log.WithError(err).Warn("landmark detection failed")
		} else {
			a.Process(snap)
			*last = snap
		}
	}

	a.storePreview(frame, *last)
	return fps, changed
}

// storePreview keeps the frame, with landmarks and status drawn on it, as a
// JPEG for the dashboard stream.
func (a *App) storePreview(frame *gocv.Mat, snap landmark.Snapshot) {
	preview := frame.Clone()
	defer preview.Close()

	drawOverlay(&preview, snap, a.LastResult())

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, preview)
	if err != nil {
		a.log.WithError(err).Debug("preview encode failed")
		return
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	a.resultMu.Lock()
	a.lastFrame = data
	a.resultMu.Unlock()
}

// LatestFrame returns the most recent preview frame as JPEG, or nil when
// monitoring is off.
func (a *App) LatestFrame() []byte {
	a.resultMu.RLock()
	defer a.resultMu.RUnlock()
	return a.lastFrame
}
