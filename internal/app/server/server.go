package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"leavetrack/internal/domain/audit"
	"leavetrack/internal/domain/auth"
	"leavetrack/internal/domain/leave"
	"leavetrack/internal/platform/cache"
	"leavetrack/internal/platform/config"
	"leavetrack/internal/platform/db"
	"leavetrack/internal/platform/logging"
	"leavetrack/internal/platform/metrics"
	"leavetrack/internal/transport/http/api"
	audithandler "leavetrack/internal/transport/http/handlers/audit"
	leavehandler "leavetrack/internal/transport/http/handlers/leave"
	usershandler "leavetrack/internal/transport/http/handlers/users"
	"leavetrack/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      *pgxpool.Pool
	Redis   *cache.Redis
	Metrics *metrics.Collector
	Router  http.Handler
}

// New wires stores, services and the router for cfg. With STORE_DRIVER=memory
// nothing outside the process is needed unless REDIS_ADDR is set.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	var (
		userStore  auth.StoreAPI
		leaveStore leave.StoreAPI
		auditStore audit.StoreAPI
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				app.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		userStore = auth.NewStore(pool)
		leaveStore = leave.NewStore(pool)
		auditStore = audit.NewStore(pool)
	default:
		logger.Warn("using in-memory stores; data is lost on restart")
		userStore = auth.NewMemoryStore()
		leaveStore = leave.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	opts := leave.Options{
		EditMode:    leave.EditMode(cfg.LeaveEditMode),
		LockTimeout: cfg.LeaveLockTimeout,
		CacheTTL:    cfg.BalanceCacheTTL,
		Metrics:     app.Metrics,
		Logger:      logger,
	}
	if cfg.RedisAddr != "" {
		app.Redis = cache.NewRedis(ctx, cfg, logger)
		opts.Locker = cache.NewRedisLocker(app.Redis.Client, 0, logger)
		opts.Cache = cache.NewJSONCache(app.Redis.Client)
	} else {
		opts.Locker = leave.NewLocalLocker()
	}

	auditSvc := audit.New(auditStore, logger)
	opts.Audit = auditSvc
	userSvc := auth.NewService(userStore, cfg.JWTSecret, cfg.TokenTTL, logger)
	leaveSvc := leave.NewService(leaveStore, userSvc, opts)

	if err := db.Seed(ctx, userSvc, cfg); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = app.routes(userSvc, leaveSvc, auditSvc)
	return app, nil
}

func (a *App) routes(userSvc *auth.Service, leaveSvc *leave.Service, auditSvc *audit.Service) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(a.Logger))
	router.Use(middleware.Logger(a.Logger, a.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if a.DB != nil {
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if a.Redis != nil {
			if err := a.Redis.Ping(ctx); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithRateLimitLogger(a.Logger)))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithRateLimitLogger(a.Logger)))

		usershandler.NewHandler(userSvc, leaveSvc, a.Logger).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, a.Logger).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, a.Logger).RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// Run loads the configuration, serves until SIGINT/SIGTERM and shuts down
// gracefully.
func Run() error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("leavetrack server listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
