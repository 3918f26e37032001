package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/plugin"
)

// PluginNotifier forwards alerts and monitoring events to subscribed plugins.
type PluginNotifier struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	log      logrus.FieldLogger
}

// NewPluginNotifier creates a PluginNotifier. Plugins are looked up on every
// call, so a later Discover is picked up without rewiring.
func NewPluginNotifier(manager *plugin.Manager, executor *plugin.Executor, log logrus.FieldLogger) *PluginNotifier {
	return &PluginNotifier{
		manager:  manager,
		executor: executor,
		log:      log.WithField("component", "alert-plugins"),
	}
}

// Notify runs every plugin subscribed to the alert event.
func (n *PluginNotifier) Notify(ctx context.Context, a Alert) error {
	return n.run(ctx, &plugin.Request{
		Event:      plugin.EventAlert,
		Title:      a.Title,
		Message:    a.Message,
		Language:   a.Language,
		Sound:      a.Sound,
		Popup:      a.Popup,
		Fullscreen: a.Fullscreen,
		Timestamp:  a.At,
	})
}

// Publish runs every plugin subscribed to event with no alert payload.
func (n *PluginNotifier) Publish(ctx context.Context, event string) error {
	return n.run(ctx, &plugin.Request{Event: event, Timestamp: time.Now()})
}

func (n *PluginNotifier) run(ctx context.Context, base *plugin.Request) error {
	var errs []error
	for _, p := range n.manager.ForEvent(base.Event) {
		req := *base
		req.Config = p.Config
		resp, err := n.executor.Execute(ctx, p, &req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error))
			continue
		}
		n.log.WithFields(logrus.Fields{"plugin": p.Manifest.Name, "event": req.Event}).Debug("plugin ran")
	}
	return errors.Join(errs...)
}
