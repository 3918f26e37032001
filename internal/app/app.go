// Package app wires camera capture, landmark detection and the proximity
// analyzer into the monitoring loop, and reports its results.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/alert"
	"github.com/ayusman/donttouch/internal/analyzer"
	"github.com/ayusman/donttouch/internal/capture"
	"github.com/ayusman/donttouch/internal/config"
	"github.com/ayusman/donttouch/internal/detector"
	"github.com/ayusman/donttouch/internal/i18n"
	"github.com/ayusman/donttouch/internal/landmark"
	"github.com/ayusman/donttouch/internal/plugin"
	"github.com/ayusman/donttouch/internal/store"
)

// Config holds the collaborators and options for an App.
type Config struct {
	Store      *store.Store
	Settings   config.Settings
	CameraID   int
	PluginDir  string
	Translator *i18n.Catalog
	Logger     logrus.FieldLogger

	// Camera and Detector replace the device camera and the MediaPipe
	// detector when set.
	Camera   capture.Camera
	Detector detector.Detector
	// Clock replaces time.Now for the analyzer and event timestamps.
	Clock analyzer.Clock
}

// App runs the monitoring loop around one Analyzer.
type App struct {
	log      logrus.FieldLogger
	store    *store.Store
	catalog  *i18n.Catalog
	now      analyzer.Clock
	motion   *capture.MotionDetector
	rate     *capture.FrameRate
	alerts   *alert.Dispatcher
	plugins  *plugin.Manager
	notifier *alert.PluginNotifier

	mu       sync.RWMutex
	camera   capture.Camera
	detector detector.Detector
	settings config.Settings
	enabled  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	// analyzeMu serializes every call into the analyzer.
	analyzeMu sync.Mutex
	analyzer  *analyzer.Analyzer

	resultMu  sync.RWMutex
	last      Status
	lastFrame []byte

	events *broker
	wg     sync.WaitGroup
}

// New creates an App. Monitoring is off until Start is called.
func New(cfg Config) (*App, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "app")

	catalog := cfg.Translator
	if catalog == nil {
		c, err := i18n.NewCatalog(i18n.DefaultLanguage)
		if err != nil {
			return nil, fmt.Errorf("load translations: %w", err)
		}
		catalog = c
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	settings := cfg.Settings
	if settings == (config.Settings{}) {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		log:      log,
		store:    cfg.Store,
		catalog:  catalog,
		now:      now,
		motion:   capture.NewMotionDetector(capture.DefaultMotionThreshold),
		rate:     capture.NewFrameRate(capture.IdleFPS, capture.ActiveFPS, capture.IdleTimeout),
		plugins:  plugin.NewManager(cfg.PluginDir, log),
		camera:   cfg.Camera,
		detector: cfg.Detector,
		events:   newBroker(),
	}

	a.notifier = alert.NewPluginNotifier(a.plugins, plugin.NewExecutor(plugin.DefaultTimeout), log)
	a.alerts = alert.NewDispatcher(catalog, log, alert.LogNotifier{Log: log}, a.notifier)

	a.analyzer = analyzer.New(
		analyzer.WithClock(now),
		analyzer.WithStatisticsFunc(a.recordTouch),
		analyzer.WithAlertFunc(a.raiseAlert),
	)

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.DefaultConfig(cfg.CameraID), log)
	}
	if a.detector == nil {
		detCfg := detector.DefaultConfig()
		detCfg.Clock = now
		if mp, err := detector.NewMediaPipeDetector(detCfg, log); err == nil {
			a.detector = mp
			log.Info("using MediaPipe landmark detection")
		} else {
			log.WithError(err).Warn("MediaPipe not available, using mock detector")
			a.detector = detector.NewMockDetector()
		}
	}

	a.applySettings(settings)
	a.last = a.idleStatus()

	return a, nil
}

// DiscoverPlugins scans the plugin directory for alert plugins.
func (a *App) DiscoverPlugins() error {
	return a.plugins.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.plugins
}

// Alerts returns the alert dispatcher so callers can add notifiers.
func (a *App) Alerts() *alert.Dispatcher {
	return a.alerts
}

// Translator returns the message catalog.
func (a *App) Translator() *i18n.Catalog {
	return a.catalog
}

// recordTouch is the analyzer's statistics callback.
func (a *App) recordTouch(duration time.Duration, closest float64) {
	a.log.WithFields(logrus.Fields{
		"duration":         duration.Round(time.Millisecond),
		"closest_distance": closest,
	}).Info("touch recorded")

	if a.store == nil {
		return
	}
	event := &store.TouchEvent{
		Timestamp:       a.now(),
		Duration:        duration,
		ClosestDistance: closest,
	}
	if err := a.store.Events().Log(event); err != nil {
		a.log.WithError(err).Error("failed to log touch event")
	}
}

// raiseAlert is the analyzer's alert callback.
func (a *App) raiseAlert() {
	a.alerts.Trigger()
	a.events.publish(Event{
		Type:    EventAlert,
		Message: i18n.Message{Key: i18n.KeyAlertMessage}.Render(a.catalog),
		At:      a.now(),
	})
}

// Process runs one snapshot through the analyzer and returns the status.
func (a *App) Process(s landmark.Snapshot) Status {
	a.analyzeMu.Lock()
	result := a.analyzer.Analyze(s.Hands, s.Head)
	st := a.status(result, s)
	a.resultMu.Lock()
	a.last = st
	a.resultMu.Unlock()
	a.analyzeMu.Unlock()

	a.events.publish(Event{Type: EventResult, Status: &st, At: st.At})
	return st
}

// LastResult returns the status of the most recent Process call.
func (a *App) LastResult() Status {
	a.resultMu.RLock()
	defer a.resultMu.RUnlock()
	return a.last
}

// State returns the analyzer state.
func (a *App) State() analyzer.State {
	a.analyzeMu.Lock()
	defer a.analyzeMu.Unlock()
	return a.analyzer.State()
}

// Thresholds returns the analyzer thresholds in effect.
func (a *App) Thresholds() analyzer.Thresholds {
	a.analyzeMu.Lock()
	defer a.analyzeMu.Unlock()
	return a.analyzer.Thresholds()
}

// Reset clears all analyzer history, including a running cooldown.
func (a *App) Reset() {
	a.analyzeMu.Lock()
	a.analyzer.Reset()
	st := a.idleStatus()
	a.resultMu.Lock()
	a.last = st
	a.resultMu.Unlock()
	a.analyzeMu.Unlock()

	a.events.publish(Event{Type: EventResult, Status: &st, At: st.At})
}

// Settings returns the settings in effect.
func (a *App) Settings() config.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// ApplySettings validates s and applies it to the running app. Analyzer
// timers keep running; only their limits change.
func (a *App) ApplySettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.applySettings(s)
	a.log.WithFields(logrus.Fields{
		"sensitivity":   s.Sensitivity,
		"trigger_time":  s.TriggerTime,
		"cooldown_time": s.CooldownTime,
		"frame_skip":    s.FrameSkip,
	}).Info("settings applied")
	return nil
}

func (a *App) applySettings(s config.Settings) {
	a.analyzeMu.Lock()
	a.analyzer.SetThresholds(s.Thresholds())
	a.analyzeMu.Unlock()

	a.alerts.SetOptions(alert.Options{
		Sound:      s.SoundEnabled,
		Popup:      s.PopupEnabled,
		Fullscreen: s.FullscreenAlert,
	})

	a.mu.Lock()
	prev := a.settings.Language
	a.settings = s
	a.mu.Unlock()

	switch {
	case s.Language != "":
		a.catalog.SetLanguage(s.Language)
	case prev != "":
		// Back to auto-detect.
		a.catalog.SetLanguage(i18n.DetectLanguage(i18n.SystemLocale()))
	}
}

// SetDetector replaces the landmark detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetCamera replaces the camera. It takes effect on the next Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// IsEnabled reports whether monitoring is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetEnabled starts or stops monitoring.
func (a *App) SetEnabled(enabled bool) error {
	if enabled {
		return a.Start()
	}
	a.Stop()
	return nil
}

// Start opens the camera and begins the monitoring loop. Starting a running
// app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	if a.stopCh != nil {
		a.mu.Unlock()
		return nil
	}

	if err := a.camera.Open(); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("start monitoring: %w", err)
	}
	a.camera.SetFPS(a.rate.Current())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.enabled = true
	go a.runPipeline(a.stopCh, a.doneCh)
	a.mu.Unlock()

	a.log.Info("monitoring started")
	a.announce(true)
	return nil
}

// Stop halts the monitoring loop, releases the camera and clears analyzer
// history. Stopping a stopped app is a no-op.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	done := a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.enabled = false
	camera := a.camera
	a.mu.Unlock()

	<-done

	if err := camera.Close(); err != nil {
		a.log.WithError(err).Warn("error closing camera")
	}
	a.motion.Reset()
	a.Reset()

	a.resultMu.Lock()
	a.lastFrame = nil
	a.resultMu.Unlock()

	a.log.Info("monitoring stopped")
	a.announce(false)
}

// announce tells subscribers and plugins that monitoring started or stopped.
func (a *App) announce(enabled bool) {
	a.events.publish(Event{Type: EventMonitoring, Enabled: &enabled, At: a.now()})

	event := plugin.EventMonitoringStopped
	if enabled {
		event = plugin.EventMonitoringStarted
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), plugin.DefaultTimeout)
		defer cancel()
		if err := a.notifier.Publish(ctx, event); err != nil {
			a.log.WithError(err).WithField("event", event).Warn("plugin hook failed")
		}
	}()
}

// Close stops monitoring and releases every resource.
func (a *App) Close() error {
	a.Stop()
	a.alerts.Wait()
	a.wg.Wait()
	a.events.close()
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			return fmt.Errorf("close detector: %w", err)
		}
	}
	return nil
}
