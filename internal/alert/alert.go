// Package alert delivers touch alerts to the user through pluggable notifiers.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/i18n"
)

// DefaultTimeout bounds one round of notifications.
const DefaultTimeout = 10 * time.Second

// Alert is one notification to deliver.
type Alert struct {
	Title      string
	Message    string
	Language   string
	At         time.Time
	Sound      bool
	Popup      bool
	Fullscreen bool
}

// Options selects how alerts are presented.
type Options struct {
	Sound      bool
	Popup      bool
	Fullscreen bool
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// languager is implemented by translators that know their current language.
type languager interface {
	Language() string
}

// Dispatcher turns alert signals into Alerts and hands them to every notifier
// on a background goroutine, so Trigger never blocks the caller.
type Dispatcher struct {
	tr      i18n.Translator
	log     logrus.FieldLogger
	now     func() time.Time
	timeout time.Duration

	mu        sync.RWMutex
	opts      Options
	notifiers []Notifier

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with sound and popup enabled.
func NewDispatcher(tr i18n.Translator, log logrus.FieldLogger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		tr:        tr,
		log:       log.WithField("component", "alert"),
		now:       time.Now,
		timeout:   DefaultTimeout,
		opts:      Options{Sound: true, Popup: true, Fullscreen: true},
		notifiers: notifiers,
	}
}

// Add registers another notifier.
func (d *Dispatcher) Add(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// SetOptions replaces the presentation options used by later alerts.
func (d *Dispatcher) SetOptions(opts Options) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = opts
}

// Options returns the current presentation options.
func (d *Dispatcher) Options() Options {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.opts
}

// Trigger builds an Alert from the current options and dispatches it.
func (d *Dispatcher) Trigger() {
	d.mu.RLock()
	opts := d.opts
	notifiers := append([]Notifier(nil), d.notifiers...)
	d.mu.RUnlock()

	a := Alert{
		Title:      i18n.Message{Key: i18n.KeyAlertTitle}.Render(d.tr),
		Message:    i18n.Message{Key: i18n.KeyAlertMessage}.Render(d.tr),
		At:         d.now(),
		Sound:      opts.Sound,
		Popup:      opts.Popup,
		Fullscreen: opts.Fullscreen,
	}
	if l, ok := d.tr.(languager); ok {
		a.Language = l.Language()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(notifiers, a)
	}()
}

func (d *Dispatcher) deliver(notifiers []Notifier, a Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	for _, n := range notifiers {
		if err := n.Notify(ctx, a); err != nil {
			d.log.WithError(err).Warn("notifier failed")
		}
	}
}

// Wait blocks until every triggered alert has been delivered.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogNotifier records alerts in the log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

// Notify logs a.
func (n LogNotifier) Notify(_ context.Context, a Alert) error {
	n.Log.WithFields(logrus.Fields{
		"at":    a.At.Format(time.RFC3339),
		"sound": a.Sound,
		"popup": a.Popup,
	}).Warn(a.Message)
	return nil
}
