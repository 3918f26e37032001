// Package plugin discovers and runs external hook programs that react to
// monitoring events, such as a desktop notification when an alert fires.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Events a plugin can subscribe to.
const (
	EventAlert             = "alert"
	EventMonitoringStarted = "monitoring_started"
	EventMonitoringStopped = "monitoring_stopped"
)

// Manifest describes a plugin, read from its plugin.json.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event      string          `json:"event"`
	Title      string          `json:"title,omitempty"`
	Message    string          `json:"message,omitempty"`
	Language   string          `json:"language,omitempty"`
	Sound      bool            `json:"sound"`
	Popup      bool            `json:"popup"`
	Fullscreen bool            `json:"fullscreen"`
	Timestamp  time.Time       `json:"timestamp"`
	// Config is the plugin's own config.json, passed through untouched.
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
	// Config holds the contents of ConfigFile, if the plugin has one.
	Config json.RawMessage
}

// Handles reports whether the plugin subscribed to event.
func (p *Plugin) Handles(event string) bool {
	return slices.Contains(p.Manifest.Events, event)
}
