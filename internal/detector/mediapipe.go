package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/donttouch/internal/landmark"
)

// ScriptName is the file name of the Python landmark service.
const ScriptName = "landmark_service.py"

// ErrScriptNotFound is returned when the landmark service cannot be located.
var ErrScriptNotFound = errors.New(ScriptName + " not found")

// MediaPipeDetector runs hand and pose models in a Python MediaPipe
// subprocess. Frames go in as length-prefixed JPEG, results come back as one
// JSON line per frame.
type MediaPipeDetector struct {
	config    Config
	script    string
	python    string
	log       logrus.FieldLogger
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the service script and interpreter. The
// Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config, log logrus.FieldLogger) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
		log:    log.WithField("component", "mediapipe"),
	}, nil
}

// Detect sends one frame to the service and waits for its landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (landmark.Snapshot, error) {
	if frame == nil || frame.Empty() {
		return landmark.Snapshot{}, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return landmark.Snapshot{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return landmark.Snapshot{}, err
	}

	line, err := d.roundTrip(data)
	if err != nil {
		// The pipe is in an unknown state; restart on the next frame.
		d.log.WithError(err).Warn("landmark service failed, restarting")
		d.shutdown()
		return landmark.Snapshot{}, err
	}

	d.resetIdleTimer()

	return d.decode(line)
}

// decode parses a service line stamped with the detector's clock.
func (d *MediaPipeDetector) decode(line []byte) (landmark.Snapshot, error) {
	return decodeResponse(line, d.config.Clock())
}

func (d *MediaPipeDetector) roundTrip(data []byte) ([]byte, error) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := d.stdin.Write(length[:]); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.log.WithFields(logrus.Fields{"python": d.python, "script": d.script}).Info("landmark service started")

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if d.cmd == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()

	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	d.log.Info("landmark service stopped")

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// searchPaths lists candidate locations for name, most specific first.
func searchPaths(name string) []string {
	paths := []string{
		name,
		filepath.Join("..", name),
		filepath.Join("..", "..", name),
	}
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), name))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".dont-touch", name))
	}
	return paths
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func findScript() string {
	return firstExisting(searchPaths(filepath.Join("scripts", ScriptName)))
}

// findVenvPython looks for an interpreter in a venv next to the project.
func findVenvPython() string {
	return firstExisting(searchPaths(filepath.Join("venv", "bin", "python")))
}
