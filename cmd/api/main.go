package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/esetaro2/progresso-backend-sub000/internal/app/migrate"
	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
	httpx "github.com/esetaro2/progresso-backend-sub000/internal/http"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository/memory"
	"github.com/esetaro2/progresso-backend-sub000/internal/repository/postgres"
	"github.com/esetaro2/progresso-backend-sub000/internal/service/allocation"
	"github.com/esetaro2/progresso-backend-sub000/internal/ws"
	"github.com/esetaro2/progresso-backend-sub000/pkg/config"
	"github.com/esetaro2/progresso-backend-sub000/pkg/logger"
	"github.com/esetaro2/progresso-backend-sub000/pkg/telemetry"
)

// gateway is a transactional store that can report its health.
type gateway interface {
	repository.Transactor
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("api", cfg.Environment, config.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "progresso-api", cfg.OTelEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := ensureBootstrapAdmin(ctx, store, cfg.BootstrapAdminID); err != nil {
		log.Error("failed to bootstrap admin", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub(cfg.EventBuffer, log)
	defer hub.Close()

	svc := allocation.New(store, log, allocation.Config{Notifier: hub})

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, svc, hub, limiter, httpx.AuthConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, store.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (gateway, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := runner.Ping(ctx); err != nil {
		runner.Close()
		return nil, nil, err
	}
	if err := runner.Ensure(ctx); err != nil {
		runner.Close()
		return nil, nil, err
	}
	// Closing the runner closes the shared pool.
	return postgres.New(pool), runner.Close, nil
}

// ensureBootstrapAdmin creates the first admin account so a fresh deployment can be administered.
func ensureBootstrapAdmin(ctx context.Context, store repository.Transactor, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		_, err := tx.GetUserByID(ctx, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		now := time.Now().UTC()
		return tx.CreateUser(ctx, &domain.User{
			ID:        id,
			Username:  id,
			Role:      domain.RoleAdmin,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
}
