package tray

import (
	"errors"
	"testing"

	"github.com/ayusman/donttouch/internal/i18n"
)

func newCatalog(t *testing.T, lang string) *i18n.Catalog {
	t.Helper()
	c, err := i18n.NewCatalog(lang)
	if err != nil {
		t.Fatalf("NewCatalog(%q) error = %v", lang, err)
	}
	return c
}

func TestTray_Labels(t *testing.T) {
	catalog := newCatalog(t, "en")

	tests := []struct {
		name       string
		enabled    bool
		status     string
		wantStatus string
		wantToggle string
	}{
		{name: "stopped", wantStatus: "Monitoring stopped", wantToggle: "Start monitoring"},
		{name: "running", enabled: true, wantStatus: "Monitoring...", wantToggle: "Stop monitoring"},
		{name: "running with status", enabled: true, status: "No face detected", wantStatus: "No face detected", wantToggle: "Stop monitoring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(catalog, tt.enabled)
			if tt.status != "" {
				tr.SetStatus(tt.status)
			}

			status, toggle := tr.Labels()
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if toggle != tt.wantToggle {
				t.Errorf("toggle = %q, want %q", toggle, tt.wantToggle)
			}
		})
	}
}

func TestTray_HandleToggle(t *testing.T) {
	tr := New(newCatalog(t, "en"), false)

	var calls []bool
	tr.OnToggle(func(enabled bool) error {
		calls = append(calls, enabled)
		return nil
	})

	tr.handleToggle()
	if !tr.IsEnabled() {
		t.Error("expected enabled after first toggle")
	}
	tr.SetStatus("Monitoring...")
	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected disabled after second toggle")
	}
	if status, _ := tr.Labels(); status != "Monitoring stopped" {
		t.Errorf("status = %q after stop", status)
	}

	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("calls = %v, want [true false]", calls)
	}
}

func TestTray_HandleToggle_Error(t *testing.T) {
	tr := New(newCatalog(t, "en"), false)
	tr.OnToggle(func(bool) error { return errors.New("camera busy") })

	tr.handleToggle()

	if tr.IsEnabled() {
		t.Error("failed start must leave the tray stopped")
	}
}

func TestTray_HandleOpen(t *testing.T) {
	tr := New(newCatalog(t, "en"), true)
	tr.handleOpen()

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()
	if !opened {
		t.Error("expected open callback")
	}
}
