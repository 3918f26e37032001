package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/donttouch/internal/app"
	"github.com/ayusman/donttouch/internal/config"
	"github.com/ayusman/donttouch/internal/i18n"
	"github.com/ayusman/donttouch/internal/logging"
	"github.com/ayusman/donttouch/internal/server"
	"github.com/ayusman/donttouch/internal/store"
	"github.com/ayusman/donttouch/internal/tray"
)

// Version is the application version.
const Version = "0.1.0"

var (
	env config.Env
	log *logrus.Logger
	// DB is the database shared by subcommands.
	DB *store.Store

	flagAddr     string
	flagCamera   int
	flagDataDir  string
	flagLogLevel string
	flagNoTray   bool
	flagAuto     bool
)

var rootCmd = &cobra.Command{
	Use:           "donttouch",
	Short:         "Alert when your hand stays near your face",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		env, err = config.LoadEnv()
		if err != nil {
			return err
		}

		// Flags win over the environment.
		flags := cmd.Flags()
		if flags.Changed("addr") {
			env.Addr = flagAddr
		}
		if flags.Changed("camera") {
			env.CameraID = flagCamera
		}
		if flags.Changed("data-dir") {
			env.DataDir = flagDataDir
			if os.Getenv(config.EnvPrefix+"PLUGIN_DIR") == "" {
				env.PluginDir = filepath.Join(env.DataDir, "plugins")
			}
		}
		if flags.Changed("log-level") {
			env.LogLevel = flagLogLevel
		}

		if err := os.MkdirAll(env.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		opts := logging.Options{Level: env.LogLevel}
		if env.LogToFile {
			opts.Dir = env.LogDir()
		}
		log, err = logging.New(opts)
		if err != nil {
			return err
		}

		DB, err = store.New(env.DBPath())
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for the database, logs and plugins (default ~/.dont-touch)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	f := rootCmd.Flags()
	f.StringVar(&flagAddr, "addr", "", "dashboard listen address (default localhost:8080)")
	f.IntVar(&flagCamera, "camera", 0, "camera device index")
	f.BoolVar(&flagNoTray, "no-tray", false, "run without the system tray")
	f.BoolVar(&flagAuto, "start", false, "start monitoring immediately")
}

func run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	settings, err := config.Load(DB.Settings(), log)
	if err != nil {
		return err
	}

	lang := settings.Language
	if lang == "" {
		lang = i18n.DetectLanguage(i18n.SystemLocale())
	}
	catalog, err := i18n.NewCatalog(lang)
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		Store:      DB,
		Settings:   settings,
		CameraID:   env.CameraID,
		PluginDir:  env.PluginDir,
		Translator: catalog,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.WithError(err).Warn("plugin discovery failed")
	}

	if settings.AutoStartDetection || flagAuto {
		if err := a.Start(); err != nil {
			log.WithError(err).Error("failed to start monitoring")
		}
	}

	webDir := env.WebDir
	if webDir == "" {
		webDir = findWebDir(env.DataDir)
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     DB,
		App:       a,
		Languages: catalog,
		Logger:    log,
	})

	if flagNoTray {
		return srv.ListenAndServe(ctx, env.Addr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, env.Addr)
		cancel()
	}()

	t := tray.New(catalog, a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnOpen(func() {
		if err := openBrowser("http://" + env.Addr); err != nil {
			log.WithError(err).Warn("failed to open browser")
		}
	})
	t.OnQuit(cancel)

	events, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go followApp(t, events)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-errCh
}

// followApp mirrors monitoring state and analyzer messages into the tray.
func followApp(t *tray.Tray, events <-chan app.Event) {
	for e := range events {
		switch e.Type {
		case app.EventMonitoring:
			if e.Enabled != nil {
				t.SetEnabled(*e.Enabled)
			}
		case app.EventResult:
			if e.Status != nil && t.IsEnabled() {
				t.SetStatus(e.Status.Message)
			}
		}
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
