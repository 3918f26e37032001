package server

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// frameInterval paces the preview at roughly 15 FPS.
const frameInterval = 66 * time.Millisecond

// FrameSource provides the most recent annotated preview frame as JPEG.
type FrameSource interface {
	LatestFrame() []byte
}

// StreamHandler serves the preview as MJPEG.
type StreamHandler struct {
	src FrameSource

	closeOnce sync.Once
	done      chan struct{}
}

// NewStreamHandler creates a new StreamHandler reading from src.
func NewStreamHandler(src FrameSource) *StreamHandler {
	return &StreamHandler{src: src, done: make(chan struct{})}
}

// Close ends every open stream.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
		}

		frame := h.src.LatestFrame()
		if frame == nil || bytes.Equal(frame, last) {
			continue
		}
		last = frame

		if err := writePart(w, frame); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
