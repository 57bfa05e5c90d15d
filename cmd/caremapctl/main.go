package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/care-map/internal/client"
	"github.com/Clark-Hu/care-map/internal/live"
	"github.com/Clark-Hu/care-map/internal/logging"
)

func main() {
	var (
		addr        = flag.String("addr", "http://localhost:8080", "care-map server base URL")
		institution = flag.String("institution", "", "institution id to rate")
		rating      = flag.Int("rating", 0, "rating value to submit with -institution")
		watch       = flag.Bool("watch", false, "print live snapshot messages until interrupted")
		timeout     = flag.Duration("timeout", 5*time.Second, "per-request timeout")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(*addr, *timeout, logger)
	if err != nil {
		logger.Error("init client", "error", err)
		os.Exit(2)
	}

	if err := run(ctx, c, *institution, *rating, *watch); err != nil {
		logger.Error("caremapctl failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, institution string, rating int, watch bool) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch {
	case watch:
		return c.Watch(ctx, func(msg live.Message) error {
			return enc.Encode(msg)
		})
	case institution != "":
		r, err := c.SubmitRating(ctx, institution, rating)
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("institution %q does not exist", institution)
		}
		if err != nil {
			return err
		}
		return enc.Encode(r)
	default:
		snap, err := c.Data(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(snap)
	}
}
