// Package tray provides the system tray menu for starting and stopping monitoring.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/donttouch/internal/i18n"
)

// Tray represents the system tray application.
type Tray struct {
	tr       i18n.Translator
	onToggle func(enabled bool) error
	onOpen   func()
	onQuit   func()
	enabled  bool
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuToggle *systray.MenuItem
}

// New creates a new Tray whose labels are translated with tr.
func New(tr i18n.Translator, enabled bool) *Tray {
	return &Tray{
		tr:      tr,
		enabled: enabled,
	}
}

// OnToggle sets the callback run when monitoring is started or stopped from
// the menu. A returned error leaves the menu state unchanged.
func (t *Tray) OnToggle(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run when the dashboard menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.tr.Translate(i18n.KeyAlertTitle, nil))
	systray.SetTooltip(t.tr.Translate(i18n.KeyAlertTitle, nil))

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.statusLabel(), "")
	t.menuStatus.Disable()
	systray.AddSeparator()
	t.menuToggle = systray.AddMenuItem(t.toggleLabel(), "")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem(t.tr.Translate(i18n.KeyTrayOpen, nil), "")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem(t.tr.Translate(i18n.KeyTrayExit, nil), "")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// toggleLabel must be called with t.mu held.
func (t *Tray) toggleLabel() string {
	if t.enabled {
		return t.tr.Translate(i18n.KeyTrayStop, nil)
	}
	return t.tr.Translate(i18n.KeyTrayStart, nil)
}

// statusLabel must be called with t.mu held.
func (t *Tray) statusLabel() string {
	if !t.enabled {
		return t.tr.Translate(i18n.KeyTrayStopped, nil)
	}
	if t.status == "" {
		return t.tr.Translate(i18n.KeyMonitoring, nil)
	}
	return t.status
}

// refresh must be called with t.mu held.
func (t *Tray) refresh() {
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(t.toggleLabel())
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.statusLabel())
	}
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(want); err != nil {
			return
		}
	}
	t.SetEnabled(want)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled updates the menu to show whether monitoring is running.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.status = ""
	}
	t.refresh()
}

// SetStatus shows the latest analyzer message in the menu.
func (t *Tray) SetStatus(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == message {
		return
	}
	t.status = message
	t.refresh()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Labels returns the status and toggle labels the menu currently shows.
func (t *Tray) Labels() (status, toggle string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statusLabel(), t.toggleLabel()
}
