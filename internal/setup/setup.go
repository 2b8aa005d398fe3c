package setup

import (
	"fmt"
	"log"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/cache"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/dashboard"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"github.com/shashank2401/cf-visualizer/internal/redis"
	"github.com/shashank2401/cf-visualizer/internal/setup/client"
	"github.com/shashank2401/cf-visualizer/internal/setup/config"
	"github.com/shashank2401/cf-visualizer/internal/setup/telemetry"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config          *config.Config     // Application configuration
	Logger          *zap.Logger        // Main application logger
	LogManager      *telemetry.Manager // Log management system
	RedisManager    *redis.Manager     // Redis connection manager, used by the redis cache backend
	API             *codeforces.Client // Codeforces API client
	Guard           *ratelimit.Guard   // Shared rate-limit window
	PersistentCache *cache.Store       // User info cache that survives restarts
	SessionCache    *cache.Store       // Rating and submission cache for this run
	Dashboard       *dashboard.Service // Report builder
	closers         []func() error     // Backend resources released on cleanup
}

// Option adjusts the loaded configuration before any component is built.
type Option func(*config.Config)

// WithTopN overrides the number of named buckets in tag and language
// histograms. Non-positive values keep the configured defaults.
func WithTopN(n int) Option {
	return func(cfg *config.Config) {
		if n > 0 {
			cfg.Stats.TopTags = n
			cfg.Stats.TopLanguages = n
		}
	}
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available. An empty
// configPath searches the default locations.
func InitializeApp(configPath, logDir string, opts ...Option) (*App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager("cfvisualizer", logDir, &cfg.Debug)

	logger, err := logManager.GetLogger()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		LogManager:   logManager,
		RedisManager: redis.NewManager(&cfg.Redis, logger),
		API:          client.NewCodeforcesClient(cfg, logger),
		Guard:        ratelimit.NewGuard(),
	}

	backend, err := app.persistentBackend()
	if err != nil {
		app.Cleanup()
		return nil, err
	}

	app.PersistentCache = cache.New(
		"persistent", backend, time.Duration(cfg.Cache.PersistentTTL)*time.Minute, logger,
	)
	app.SessionCache = cache.New(
		"session", cache.NewMemory(), time.Duration(cfg.Cache.SessionTTL)*time.Minute, logger,
	)

	app.Dashboard = dashboard.NewService(app.API, app.PersistentCache, app.SessionCache, app.Guard, dashboard.Options{
		Location:     stats.Location(cfg.Stats.TimezoneOffset),
		TopLanguages: cfg.Stats.TopLanguages,
		TopTags:      cfg.Stats.TopTags,
		Now:          time.Now,
	}, logger)

	logger.Info("Application initialized",
		zap.String("persistent_backend", cfg.Cache.PersistentBackend),
		zap.String("api", cfg.API.BaseURL),
		zap.String("log_dir", logManager.GetCurrentSessionDir()))

	return app, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (a *App) Cleanup() {
	if a.Dashboard != nil {
		a.Dashboard.Close()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Error("Failed to close cache backend", zap.Error(err))
		}
	}

	// Close Redis connections last as other components might need it during cleanup
	a.RedisManager.Close()

	// Sync buffered logs before shutdown
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}

// persistentBackend opens the configured persistent cache backend.
func (a *App) persistentBackend() (cache.Backend, error) {
	switch a.Config.Cache.PersistentBackend {
	case config.BackendRedis:
		rdb, err := a.RedisManager.GetClient(redis.CacheDBIndex)
		if err != nil {
			return nil, err
		}

		return cache.NewRedis(rdb), nil
	case config.BackendSQLite:
		db, err := cache.OpenSQLite(a.Config.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, db.Close)

		return db, nil
	case config.BackendMemory:
		return cache.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownCacheBackend, a.Config.Cache.PersistentBackend)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}
