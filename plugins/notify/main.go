// Package main provides a desktop notification plugin.
// On macOS it uses AppleScript; on Linux it uses notify-send and paplay.
//
// There is no fullscreen window: a fullscreen alert is shown as a critical
// notification, a popup-only alert as a normal one.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event      string          `json:"event"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	Language   string          `json:"language"`
	Sound      bool            `json:"sound"`
	Popup      bool            `json:"popup"`
	Fullscreen bool            `json:"fullscreen"`
	Config     json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional plugin configuration.
type Config struct {
	Title     string `json:"title"`
	SoundFile string `json:"sound_file"`
}

const defaultTitle = "Don't Touch"

var errUnsupported = errors.New("unsupported platform: " + runtime.GOOS)

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	// Only alerts produce a notification.
	if req.Event != "alert" {
		writeResponse(Response{Success: true, Data: json.RawMessage(`{"skipped":true}`)})
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	var failures []string
	if urgency := urgencyFor(req); urgency != "" {
		if err := notify(titleFor(req, cfg), req.Message, urgency); err != nil {
			failures = append(failures, "notify: "+err.Error())
		}
	}
	if req.Sound {
		if err := playSound(cfg.SoundFile); err != nil {
			failures = append(failures, "sound: "+err.Error())
		}
	}

	if len(failures) > 0 {
		writeErrorResponse(strings.Join(failures, "; "))
		return
	}
	writeResponse(Response{Success: true})
}

func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// titleFor picks the notification title. A configured title overrides the
// localized one sent by the app.
func titleFor(req Request, cfg Config) string {
	switch {
	case cfg.Title != "":
		return cfg.Title
	case req.Title != "":
		return req.Title
	default:
		return defaultTitle
	}
}

// urgencyFor maps the alert options to a notification urgency, or "" when
// no notification should be shown.
func urgencyFor(req Request) string {
	switch {
	case req.Fullscreen:
		return "critical"
	case req.Popup:
		return "normal"
	default:
		return ""
	}
}

// notify shows a desktop notification. AppleScript has no urgency levels.
func notify(title, message, urgency string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(message), appleQuote(title))
		return run("osascript", "-e", script)
	case "linux":
		return run("notify-send", "--urgency="+urgency, title, message)
	default:
		return errUnsupported
	}
}

// playSound plays file, or the platform's default alert sound when file is empty.
func playSound(file string) error {
	switch runtime.GOOS {
	case "darwin":
		if file == "" {
			file = "/System/Library/Sounds/Glass.aiff"
		}
		return run("afplay", file)
	case "linux":
		if file == "" {
			file = "/usr/share/sounds/freedesktop/stereo/bell.oga"
		}
		return run("paplay", file)
	default:
		return errUnsupported
	}
}

// appleQuote quotes s as an AppleScript string literal.
func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// run executes a command and returns any error with its output.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
