package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DONTTOUCH_"

// Env is the process configuration: where data lives and what to bind.
type Env struct {
	DataDir   string
	Addr      string
	CameraID  int
	PluginDir string
	WebDir    string
	LogLevel  string
	LogToFile bool
}

// DBPath returns the location of the SQLite database.
func (e Env) DBPath() string {
	return filepath.Join(e.DataDir, "donttouch.db")
}

// LogDir returns the directory for rotated log files.
func (e Env) LogDir() string {
	return filepath.Join(e.DataDir, "logs")
}

// DefaultEnv returns the configuration used when no variables are set.
func DefaultEnv() Env {
	dataDir := ".dont-touch"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".dont-touch")
	}
	return Env{
		DataDir:   dataDir,
		Addr:      "localhost:8080",
		CameraID:  0,
		PluginDir: filepath.Join(dataDir, "plugins"),
		LogLevel:  "info",
		LogToFile: true,
	}
}

// LoadEnv loads the given dotenv files (".env" when none are given) and then
// reads DONTTOUCH_* variables over the defaults. Missing dotenv files are not
// an error. Variables already set in the process win over dotenv values.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	e := DefaultEnv()
	dataDirSet := false
	if v, ok := lookup("DATA_DIR"); ok {
		e.DataDir = v
		dataDirSet = true
	}
	if v, ok := lookup("PLUGIN_DIR"); ok {
		e.PluginDir = v
	} else if dataDirSet {
		e.PluginDir = filepath.Join(e.DataDir, "plugins")
	}
	if v, ok := lookup("ADDR"); ok {
		e.Addr = v
	}
	if v, ok := lookup("WEB_DIR"); ok {
		e.WebDir = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		e.LogLevel = v
	}
	if v, ok := lookup("CAMERA"); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Env{}, fmt.Errorf("%sCAMERA: %w", EnvPrefix, err)
		}
		e.CameraID = id
	}
	if v, ok := lookup("LOG_TO_FILE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Env{}, fmt.Errorf("%sLOG_TO_FILE: %w", EnvPrefix, err)
		}
		e.LogToFile = b
	}

	return e, nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
