package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/domain/payroll"
	"workforce/internal/platform/cache"
	"workforce/internal/platform/config"
	"workforce/internal/platform/crypto"
	"workforce/internal/platform/db"
	"workforce/internal/platform/directory"
	"workforce/internal/platform/jobs"
	"workforce/internal/platform/metrics"
	"workforce/internal/requestctx"
	"workforce/internal/transport/http/api"
	payrollhandler "workforce/internal/transport/http/handlers/payroll"
	"workforce/internal/transport/http/middleware"
)

type App struct {
	Config    config.Config
	DB        *pgxpool.Pool
	Cache     *cache.Store
	Metrics   *metrics.Collector
	Jobs      *jobs.Service
	Directory *directory.Client
	Router    http.Handler

	stopJobs context.CancelFunc
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	slog.SetDefault(NewLogger(cfg))

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("payroll server listening", "addr", cfg.Addr, "persistence", app.DB != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("payroll server stopped")
}

// NewLogger builds the process logger in the ECS layout httplog expects.
func NewLogger(cfg config.Config) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(cfg.Environment != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "workforce-payroll"),
		slog.String("env", cfg.Environment),
	)
}

// New wires stores, clients and routes. Postgres is optional: without DATABASE_URL the
// allocation endpoints answer 501.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}

	sealer, err := crypto.New(cfg.CacheEncryptionKey)
	if err != nil {
		return nil, err
	}
	snapshots, err := cache.New(cfg.CachePath, cache.WithSealer(sealer))
	if err != nil {
		return nil, err
	}
	app.Cache = snapshots
	app.startJobs(ctx)

	var store payroll.ConfigStore
	if cfg.PersistenceEnabled() {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				app.Close()
				return nil, err
			}
		}
		store = payroll.NewStore(pool)
	}

	app.Directory = directory.New(cfg.DirectoryBaseURL, cfg.DirectoryTimeout, snapshots, app.Metrics)
	svc := payroll.NewService(app.Directory, store, app.Metrics)
	app.Router = app.routes(svc, slog.Default())
	return app, nil
}

// startJobs launches the cache retention sweep. It stops when ctx ends or on Close.
func (a *App) startJobs(ctx context.Context) {
	jobCtx, cancel := context.WithCancel(ctx)
	a.stopJobs = cancel
	a.Jobs = jobs.New()
	a.Jobs.Start(jobCtx)
	a.Jobs.Schedule(jobCtx, jobs.JobCacheRetention, a.Config.CacheSweepInterval, a.pruneCache)
}

func (a *App) pruneCache(ctx context.Context) (any, error) {
	cutoff := time.Now().Add(-a.Config.CacheRetention)
	deleted, err := a.Cache.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if deleted > 0 {
		slog.Info("pruned cached worker snapshots", "deleted", deleted, "cutoff", cutoff)
	}
	return map[string]any{"deleted": deleted, "cutoff": cutoff}, nil
}

func (a *App) routes(svc *payroll.Service, logger *slog.Logger) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	router.Use(middleware.Metrics(a.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Cache.Ping(ctx); err != nil {
			http.Error(w, "cache not ready", http.StatusServiceUnavailable)
			return
		}
		checks := map[string]string{"cache": "ok", "db": "disabled", "directory": "ok"}
		if a.DB != nil {
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
			checks["db"] = "ok"
		}
		if err := a.Directory.Ping(ctx); err != nil {
			requestctx.Logger(r.Context()).Warn("directory not reachable", "err", err)
			checks["directory"] = "unavailable"
		}
		api.Success(w, checks, middleware.GetRequestID(r.Context()))
	})

	if a.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, a.Jobs.LastRuns(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		payrollHandler := payrollhandler.NewHandler(svc, middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		payrollHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Warn("cache close failed", "err", err)
		}
	}
}
