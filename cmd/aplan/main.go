package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/aplan/internal/adapters/storage/jsonfile"
	"github.com/evanschultz/aplan/internal/adapters/storage/sqlite"
	"github.com/evanschultz/aplan/internal/app"
	"github.com/evanschultz/aplan/internal/config"
	"github.com/evanschultz/aplan/internal/platform"
	"github.com/evanschultz/aplan/internal/render"
	"github.com/google/uuid"
)

// version stores a package-level helper value.
var version = "dev"

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// fang has already rendered the error on stderr.
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := defaultGlobalOptions()
	root := newRootCommand(opts, stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalOptions holds persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	backend    string
	project    string
	devMode    bool
	quiet      bool
}

// defaultGlobalOptions seeds flag defaults from the environment.
func defaultGlobalOptions() *globalOptions {
	opts := &globalOptions{
		appName: "aplan",
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("APLAN_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("APLAN_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	return opts
}

// session is the resolved runtime state of one command invocation.
type session struct {
	svc        *app.Service
	cfg        config.Config
	logger     *runtimeLogger
	project    string
	configPath string
	paths      platform.Paths
	closeRepo  func() error
}

// resolvePaths resolves per-OS paths for the selected app name and mode.
func (o *globalOptions) resolvePaths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// openSession loads config, builds the logger and opens the selected repository.
func openSession(opts *globalOptions, stderr io.Writer) (*session, error) {
	paths, err := opts.resolvePaths()
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("APLAN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("APLAN_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath, paths.SnapshotDir))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	backendRaw := strings.TrimSpace(opts.backend)
	if backendRaw == "" {
		backendRaw = strings.TrimSpace(os.Getenv("APLAN_BACKEND"))
	}
	if backendRaw != "" {
		backend, err := config.ParseStorageBackend(backendRaw)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %q: %w", configPath, err)
	}

	logger, err := newRuntimeLogger(stderr, paths, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.SetConsoleEnabled(!opts.quiet)
	charmLog.SetDefault(logger.defaultSink())

	logger.Debug("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "backend", cfg.Storage.Backend)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	project := strings.TrimSpace(opts.project)
	if project == "" {
		project = strings.TrimSpace(os.Getenv("APLAN_PROJECT"))
	}
	if project == "" {
		project = cfg.Project.Default
	}

	return &session{
		svc:        app.NewService(repo, uuid.NewString, nil),
		cfg:        cfg,
		logger:     logger,
		project:    project,
		configPath: configPath,
		paths:      paths,
		closeRepo:  closeRepo,
	}, nil
}

// openRepository opens the storage backend selected by cfg.
func openRepository(cfg config.Config, logger *runtimeLogger) (app.Repository, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendFile:
		logger.Debug("opening file repository", "dir", cfg.Storage.SnapshotDir)
		repo, err := jsonfile.Open(cfg.Storage.SnapshotDir)
		if err != nil {
			logger.Error("file repository open failed", "dir", cfg.Storage.SnapshotDir, "err", err)
			return nil, nil, fmt.Errorf("open file repository: %w", err)
		}
		return repo, repo.Close, nil
	default:
		logger.Debug("opening sqlite repository", "db_path", cfg.Database.Path)
		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
			return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")
		return repo, repo.Close, nil
	}
}

// Close releases the repository and the dev-file sink.
func (s *session) Close(stderr io.Writer) {
	if s == nil {
		return
	}
	if s.closeRepo != nil {
		if err := s.closeRepo(); err != nil {
			s.logger.Warn("repository close failed", "err", err)
		}
	}
	if err := s.logger.Close(); err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// renderOptions maps render config onto renderer options.
func (s *session) renderOptions() render.Options {
	return render.Options{
		ShowMembers: s.cfg.Render.ShowMembers,
		ShowValues:  s.cfg.Render.ShowValues,
	}
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
