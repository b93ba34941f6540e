// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"qr-ticket-system/internal/config"
	"qr-ticket-system/internal/infra/barcode"
	"qr-ticket-system/internal/infra/db"
	"qr-ticket-system/internal/infra/logging"
	red "qr-ticket-system/internal/infra/redis"
	"qr-ticket-system/internal/infra/worker"
	"qr-ticket-system/internal/usecase"
)

// seed issues demo credentials into the configured store.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	n := flag.Int("n", 10, "number of credentials to issue")
	event := flag.String("event", "Demo Event", "event name for every credential")
	workers := flag.Int("workers", 4, "concurrent issuers")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Store.Driver == "memory" {
		log.Fatalf("store.driver is memory; seeded credentials would vanish on exit")
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		if redisClient, err = red.NewClient(ctx, cfg.Redis); err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
	}

	st, err := db.Open(ctx, cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	defer st.Close()

	encoder, err := barcode.NewEncoder(cfg.QRCode.ErrorLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("barcode encoder")
	}
	issue := usecase.NewIssueUseCase(st.Repo, encoder,
		usecase.ImageSpec{Width: cfg.QRCode.Width, Height: cfg.QRCode.Height, Format: cfg.QRCode.Format},
		logger, true)

	pool := worker.NewPool("seed", *workers, logger)
	pool.Start(ctx)

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 1; i <= *n; i++ {
		holder := fmt.Sprintf("Guest %03d", i)
		email := fmt.Sprintf("guest%03d@example.com", i)
		wg.Add(1)
		err := pool.SubmitWait(ctx, func(ctx context.Context) error {
			defer wg.Done()
			c, err := issue.Issue(ctx, *event, holder, email)
			if err != nil {
				failed.Add(1)
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", c.ID, c.HolderName, c.Payload)
			return nil
		})
		if err != nil {
			wg.Done()
			logger.Error().Err(err).Str("holder", holder).Msg("submit")
			failed.Add(1)
		}
	}
	wg.Wait()
	pool.Stop()

	if f := failed.Load(); f > 0 {
		logger.Fatal().Int32("failed", f).Int("total", *n).Msg("seed incomplete")
	}
	logger.Info().Int("issued", *n).Str("driver", cfg.Store.Driver).Msg("seed done")
}
