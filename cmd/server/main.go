package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Clark-Hu/care-map/internal/config"
	"github.com/Clark-Hu/care-map/internal/coordinator"
	httpserver "github.com/Clark-Hu/care-map/internal/http"
	"github.com/Clark-Hu/care-map/internal/logging"
	"github.com/Clark-Hu/care-map/internal/metrics"
	"github.com/Clark-Hu/care-map/internal/repository"
	"github.com/Clark-Hu/care-map/internal/seed"
	"github.com/Clark-Hu/care-map/internal/store"
)

// backend is what the server needs from either store driver.
type backend interface {
	coordinator.Store
	httpserver.HealthChecker
}

type pgBackend struct {
	*repository.Repository
	*store.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	be, cleanup, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	coord := coordinator.New(be, logger.With("component", "coordinator"))
	server := httpserver.New(cfg, be, coord, logger.With("component", "http"))

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var runErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", "error", err)
	}
	coord.Close()
	return runErr
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := repository.NewMemory(nil)
		if cfg.SeedMemoryStore {
			if _, err := seed.Apply(ctx, mem, seed.Default, false, logger.With("component", "seed")); err != nil {
				return nil, nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		logger.Warn("using in-memory store; data is lost on restart")
		return mem, func() {}, nil
	default:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		st, err := store.New(dbCtx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger.With("component", "store"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if cfg.DBAutoMigrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, nil, err
			}
		}
		prometheus.MustRegister(metrics.NewPoolCollector(st.Stats))
		return pgBackend{Repository: repository.New(st), Store: st}, st.Close, nil
	}
}
