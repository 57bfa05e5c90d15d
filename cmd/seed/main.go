package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/care-map/internal/config"
	"github.com/Clark-Hu/care-map/internal/logging"
	"github.com/Clark-Hu/care-map/internal/repository"
	"github.com/Clark-Hu/care-map/internal/seed"
	"github.com/Clark-Hu/care-map/internal/store"
)

func main() {
	var (
		data  = flag.String("data", "", "path to a JSON array of {id, name} institutions (default: built-in data set)")
		force = flag.Bool("force", false, "create missing institutions even when the store already has data")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *data, *force); err != nil {
		slog.Error("seed failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, dataPath string, force bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("component", "seed")

	if cfg.StoreDriver != config.DriverPostgres {
		return errors.New("seeding requires STORE_DRIVER=postgres; the memory driver seeds itself at startup")
	}

	institutions := seed.Default
	if dataPath != "" {
		institutions, err = seed.Load(dataPath)
		if err != nil {
			return err
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               2,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	if cfg.DBAutoMigrate {
		if err := st.Migrate(dbCtx); err != nil {
			return err
		}
	}

	res, err := seed.Apply(dbCtx, repository.New(st), institutions, force, logger)
	if err != nil {
		return err
	}
	logger.Info("seed finished", "created", res.Created, "skipped", res.Skipped)
	return nil
}
