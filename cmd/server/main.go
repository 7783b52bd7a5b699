package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/observability/audit"
	"github.com/yukikurage/team-task-api/internal/observability/tracing"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "team-task-api"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, serviceName, cfg.GinMode)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return err
	}

	store := repository.NewStore(db)
	guard := services.NewGuard(audit.NewLogger(logger))

	denylist, sessionStore, closeBackends, err := setupSessionBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	identity := services.NewIdentityService(
		store,
		services.NewBcryptHasher(0),
		services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry),
		denylist,
		guard,
	)

	admin, created, err := identity.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Info("seeded admin user", "user_id", admin.ID.String(), "email", admin.Email)
	}

	// Initialize AI service
	var drafter services.TaskDrafter
	if cfg.OpenAIAPIKey != "" {
		drafter = services.NewAIService(cfg.OpenAIAPIKey)
	}

	checker, err := database.NewHealthCheckerFromGorm(db, 2*time.Second)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:       logger,
		SessionStore: sessionStore,
		Verifier:     identity,
	}, handlers.Handlers{
		Auth:    handlers.NewAuthHandler(identity),
		User:    handlers.NewUserHandler(identity),
		Team:    handlers.NewTeamHandler(services.NewTeamService(store, guard)),
		Task:    handlers.NewTaskHandler(services.NewTaskService(store, guard, drafter)),
		Comment: handlers.NewCommentHandler(services.NewCommentService(store, guard)),
		Health:  handlers.NewHealthHandler(checker),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupSessionBackends uses Redis for the token denylist and session store
// when REDIS_HOST is set, and in-process stores otherwise. The returned func
// releases the Redis connection.
func setupSessionBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Denylist, sessions.Store, func(), error) {
	var (
		denylist services.Denylist
		store    sessions.Store
		closeFn  = func() {}
	)

	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := cache.NewRedisClient(addr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}
		denylist = cache.NewRedisDenylist(rdb)

		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			addr,
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		store = rs
		logger.Info("using redis for sessions", "addr", addr)
	} else {
		memory := cache.NewMemoryDenylist()
		memory.StartCleanup(ctx, time.Minute)
		denylist = memory
		store = cookie.NewStore([]byte(cfg.SessionSecret))
		logger.Warn("REDIS_HOST not set: token revocations are kept in memory")
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTExpiry.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return denylist, store, closeFn, nil
}
