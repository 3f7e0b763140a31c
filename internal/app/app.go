package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"todoReminder/internal/auth"
	"todoReminder/internal/cache"
	"todoReminder/internal/config"
	"todoReminder/internal/handlers"
	"todoReminder/internal/logger"
	"todoReminder/internal/migrations"
	"todoReminder/internal/repository/inmemory"
	"todoReminder/internal/repository/postgres"
	"todoReminder/internal/repository/sqlite"
	"todoReminder/internal/service"
	"todoReminder/internal/worker"
)

// Store is what every backend provides: the repositories of the service layer
// plus the reminder queries of the scanner.
type Store interface {
	service.TaskRepository
	service.UserRepository
	service.NotificationRepository
	worker.ReminderRepository
	Close()
}

type migrator interface {
	Migrate(dir migrations.Direction) error
}

type notificationCache interface {
	service.NotificationCache
	Close() error
}

type App struct {
	config    *config.Config
	store     Store
	cache     notificationCache
	users     *service.UserService
	server    *http.Server
	worker    *worker.ReminderWorker
	shutdowns []func() // run in reverse order by Shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init opens the store, applies pending migrations and wires every component.
// Call Shutdown afterwards even when Init fails half way.
func (a *App) Init(ctx context.Context) error {
	store, err := OpenStore(ctx, a.config)
	if err != nil {
		return err
	}
	a.store = store
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: closing store")
		store.Close()
	})

	if m, ok := store.(migrator); ok {
		if err := m.Migrate(migrations.Up); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	if err := a.initCache(ctx); err != nil {
		return err
	}

	tokens := auth.NewTokenManager(a.config.Auth.Secret, a.config.Auth.TokenTTL)
	opts := []service.Option{service.WithNotificationCache(a.cache)}

	tasks := service.NewTaskService(store, opts...)
	a.users = service.NewUserService(store, store, store, tokens, opts...)
	notifications := service.NewNotificationService(store, opts...)

	a.worker = worker.NewReminderWorker(store,
		worker.WithInterval(a.config.Scanner.Interval),
		worker.WithBatchSize(a.config.Scanner.BatchSize),
		worker.WithInvalidator(a.cache),
	)

	router := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigins: a.config.Server.CORSOrigins,
		RateLimit:   a.config.Server.RateLimit,
	}, tasks, a.users, notifications)

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: initialized",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("scanner", a.config.Scanner.Enabled),
		zap.Bool("redis_cache", a.config.Cache.RedisURL != ""))
	return nil
}

func (a *App) initCache(ctx context.Context) error {
	if a.config.Cache.RedisURL == "" {
		a.cache = cache.Noop{}
		return nil
	}

	redisCache, err := cache.NewRedis(ctx, a.config.Cache.RedisURL, a.config.Cache.TTL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	a.cache = redisCache
	a.shutdowns = append(a.shutdowns, func() {
		if err := redisCache.Close(); err != nil {
			logger.Error("App: closing redis", err)
		}
	})
	return nil
}

// Users exposes the account service for the CLI.
func (a *App) Users() *service.UserService {
	return a.users
}

// Run serves HTTP and runs the reminder scanner until ctx is cancelled or one
// of them fails. The in-flight scanner pass is finished before Run returns.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("App: shutting down HTTP server")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.config.Scanner.Enabled {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

// OpenStore connects the backend selected by repository.type.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Repository.Type {
	case config.RepositoryPostgres:
		store, err := postgres.New(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnIdleTime: cfg.Database.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.RepositorySQLite:
		store, err := sqlite.New(ctx, cfg.Repository.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	case config.RepositoryInMemory:
		return inmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown repository type %q", cfg.Repository.Type)
	}
}

// Migrate applies or rolls back the schema of the configured store.
func Migrate(ctx context.Context, cfg *config.Config, dir migrations.Direction) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m, ok := store.(migrator)
	if !ok {
		logger.Info("App: repository has no schema to migrate", zap.String("repository", cfg.Repository.Type))
		return nil
	}

	start := time.Now()
	if err := m.Migrate(dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	logger.Info("App: migrations applied",
		zap.String("direction", string(dir)),
		zap.Duration("ms", time.Since(start)))
	return nil
}
