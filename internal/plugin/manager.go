package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// ManifestFile is the manifest name looked for in each plugin directory.
const ManifestFile = "plugin.json"

// ConfigFile is the optional per-plugin configuration, read next to the
// manifest and sent to the plugin with every request.
const ConfigFile = "config.json"

// Manager discovers plugins in a directory and indexes them by name.
type Manager struct {
	pluginDir string
	log       logrus.FieldLogger
	mu        sync.RWMutex
	plugins   map[string]*Plugin
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, log logrus.FieldLogger) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		log:       log.WithField("component", "plugins"),
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Every subdirectory holding a valid
// plugin.json becomes a plugin; broken manifests are logged and skipped.
// A missing directory yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read plugin directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.pluginDir, entry.Name())
		p, err := loadPlugin(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			m.log.WithField("path", path).WithError(err).Warn("skipping plugin")
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	m.log.WithField("count", len(found)).Debug("plugins discovered")
	return nil
}

func loadPlugin(path string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(path, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       path,
		Executable: filepath.Join(path, manifest.Executable),
		Config:     cfg,
	}, nil
}

func loadConfig(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(path, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("parse config: %s is not valid JSON", ConfigFile)
	}
	return json.RawMessage(data), nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// List returns all plugins sorted by name.
func (m *Manager) List() []*Plugin {
	return m.filter(func(*Plugin) bool { return true })
}

// ForEvent returns the plugins subscribed to event, sorted by name.
func (m *Manager) ForEvent(event string) []*Plugin {
	return m.filter(func(p *Plugin) bool { return p.Handles(event) })
}

func (m *Manager) filter(keep func(*Plugin) bool) []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		if keep(p) {
			plugins = append(plugins, p)
		}
	}
	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
