package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/app"
	"github.com/ayusman/donttouch/internal/server/api"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: api.SameOrigin,
}

// EventSource publishes analysis results, alerts and monitoring changes.
type EventSource interface {
	Subscribe() (<-chan app.Event, func())
	LastResult() app.Status
}

// EventsHandler pushes app events to WebSocket clients as JSON.
type EventsHandler struct {
	source EventSource
	log    logrus.FieldLogger

	closeOnce sync.Once
	done      chan struct{}
}

// NewEventsHandler creates a new EventsHandler over source.
func NewEventsHandler(source EventSource, log logrus.FieldLogger) *EventsHandler {
	return &EventsHandler{
		source: source,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Close disconnects every client.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.source.Subscribe()
	defer cancel()

	// Clients only ever send control frames; reading is how a close is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := h.source.LastResult()
	if err := h.write(conn, app.Event{Type: app.EventResult, Status: &last, At: last.At}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				h.closeConn(conn)
				return
			}
			if err := h.write(conn, e); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.done:
			h.closeConn(conn)
			return
		case <-gone:
			return
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, e app.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

func (h *EventsHandler) closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
