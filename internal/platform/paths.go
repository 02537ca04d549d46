// Package platform resolves where aplan keeps its config, database, project
// documents and dev logs on each OS.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// defaultAppName names the directories when no app name is given.
const defaultAppName = "aplan"

// Paths holds every location the CLI reads or writes.
type Paths struct {
	App         string
	ConfigPath  string
	DataDir     string
	DBPath      string
	SnapshotDir string
	LogDir      string
}

// Options selects the app directory name and dev mode.
type Options struct {
	AppName string
	DevMode bool
}

// Env is the part of the process environment that path resolution reads.
type Env struct {
	GOOS          string
	Getenv        func(string) string
	HomeDir       string
	UserConfigDir string
}

// OSEnv captures the current process environment.
func OSEnv() (Env, error) {
	env := Env{GOOS: runtime.GOOS, Getenv: os.Getenv}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Env{}, fmt.Errorf("user config dir: %w", err)
	}
	env.UserConfigDir = configDir
	if home, err := os.UserHomeDir(); err == nil {
		env.HomeDir = home
	}
	return env, nil
}

// DefaultPathsWithOptions resolves paths for the current process.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	env, err := OSEnv()
	if err != nil {
		return Paths{}, err
	}
	return Resolve(env, opts)
}

// Resolve computes the paths of one app under env. On linux config, data and
// logs follow the XDG base directories; on windows config roams and data
// stays local; elsewhere everything lives under the user config dir.
func Resolve(env Env, opts Options) (Paths, error) {
	app := strings.TrimSpace(opts.AppName)
	if app == "" {
		app = defaultAppName
	}
	if strings.ContainsAny(app, `/\`) {
		return Paths{}, fmt.Errorf("app name %q must not contain path separators", app)
	}
	if opts.DevMode {
		app += "-dev"
	}

	getenv := env.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	lookup := func(key string) string { return strings.TrimSpace(getenv(key)) }

	var configBase, dataBase, stateBase string
	switch env.GOOS {
	case "linux":
		if env.HomeDir == "" && (lookup("XDG_CONFIG_HOME") == "" || lookup("XDG_DATA_HOME") == "") {
			return Paths{}, errors.New("home dir is required without XDG_CONFIG_HOME and XDG_DATA_HOME")
		}
		configBase = firstNonEmpty(lookup("XDG_CONFIG_HOME"), filepath.Join(env.HomeDir, ".config"))
		dataBase = firstNonEmpty(lookup("XDG_DATA_HOME"), filepath.Join(env.HomeDir, ".local", "share"))
		stateBase = lookup("XDG_STATE_HOME")
		if stateBase == "" && env.HomeDir != "" {
			stateBase = filepath.Join(env.HomeDir, ".local", "state")
		}
	case "windows":
		configBase = firstNonEmpty(lookup("APPDATA"), env.UserConfigDir)
		dataBase = firstNonEmpty(lookup("LOCALAPPDATA"), configBase)
	default:
		configBase = env.UserConfigDir
		dataBase = env.UserConfigDir
	}
	if configBase == "" || dataBase == "" {
		return Paths{}, fmt.Errorf("no config or data base dir for %s", env.GOOS)
	}

	dataDir := filepath.Join(dataBase, app)
	logDir := filepath.Join(dataDir, "log")
	if stateBase != "" {
		logDir = filepath.Join(stateBase, app, "log")
	}
	return Paths{
		App:         app,
		ConfigPath:  filepath.Join(configBase, app, "config.toml"),
		DataDir:     dataDir,
		DBPath:      filepath.Join(dataDir, app+".db"),
		SnapshotDir: filepath.Join(dataDir, "projects"),
		LogDir:      logDir,
	}, nil
}

// DevLogFile returns the per-day dev log file inside dir, or inside LogDir
// when dir is empty.
func (p Paths) DevLogFile(dir string, now time.Time) string {
	if strings.TrimSpace(dir) == "" {
		dir = p.LogDir
	}
	return filepath.Join(filepath.Clean(dir), fmt.Sprintf("%s-%s.log", p.App, now.Format("20060102")))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
