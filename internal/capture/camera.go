// Package capture reads webcam frames and measures how much the scene moves.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Camera errors.
var (
	ErrCameraNotOpen = errors.New("camera is not open")
	ErrReadFailed    = errors.New("failed to read frame from camera")
	ErrEmptyFrame    = errors.New("captured frame is empty")
)

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config describes how to open a capture device.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool
}

// DefaultConfig returns a 640x480 mirrored configuration for the device.
func DefaultConfig(deviceID int) Config {
	return Config{
		DeviceID: deviceID,
		Width:    640,
		Height:   480,
		FPS:      IdleFPS,
		Mirror:   true,
	}
}

// DeviceCamera captures from a local video device through OpenCV.
type DeviceCamera struct {
	cfg     Config
	log     logrus.FieldLogger
	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera creates a closed camera for cfg. Zero sizes and rates fall back
// to DefaultConfig values.
func NewCamera(cfg Config, log logrus.FieldLogger) *DeviceCamera {
	def := DefaultConfig(cfg.DeviceID)
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	}
	return &DeviceCamera{
		cfg: cfg,
		log: log.WithField("device", cfg.DeviceID),
	}
}

// Open starts capturing. Opening an open camera is a no-op.
func (c *DeviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device not available", c.cfg.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))

	c.capture = vc
	c.log.WithFields(logrus.Fields{
		"width":  c.cfg.Width,
		"height": c.cfg.Height,
		"fps":    c.cfg.FPS,
	}).Info("camera opened")

	return nil
}

// Close releases the device. Closing a closed camera returns nil.
func (c *DeviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.log.Info("camera closed")

	return err
}

// ReadFrame grabs one frame, mirrored when configured.
func (c *DeviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrReadFailed
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	if !c.cfg.Mirror {
		return &mat, nil
	}

	mirrored := gocv.NewMat()
	gocv.Flip(mat, &mirrored, 1)
	mat.Close()

	return &mirrored, nil
}

// SetFPS changes the requested capture rate.
// Values less than or equal to 0 are ignored.
func (c *DeviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *DeviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cfg.FPS
}

// IsOpen reports whether the device is capturing.
func (c *DeviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.capture != nil
}
