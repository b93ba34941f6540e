// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qr-ticket-system/internal/config"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/api"
	"qr-ticket-system/internal/infra/barcode"
	"qr-ticket-system/internal/infra/db"
	"qr-ticket-system/internal/infra/logging"
	"qr-ticket-system/internal/infra/metrics"
	red "qr-ticket-system/internal/infra/redis"
	"qr-ticket-system/internal/infra/sched"
	"qr-ticket-system/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no PII redaction)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Store.Driver)

	// ---- Redis (optional unless it is the store) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
	}

	// ---- Credential store ----
	st, err := db.Open(ctx, cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("credential store ready")

	// ---- Use cases ----
	encoder, err := barcode.NewEncoder(cfg.QRCode.ErrorLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("barcode encoder")
	}
	image := usecase.ImageSpec{Width: cfg.QRCode.Width, Height: cfg.QRCode.Height, Format: cfg.QRCode.Format}

	var (
		imageCache repository.ImageCache
		limit      usecase.RateLimit
	)
	if redisClient != nil {
		imageCache = red.NewImageCache(redisClient)
		limit = usecase.RateLimit{
			Limiter: red.NewRateLimiter(redisClient),
			Limit:   cfg.Reception.RateLimit,
			Window:  cfg.Reception.RateWindow,
			KeyFunc: red.VerifyKey,
		}
	}

	staffUC, err := usecase.NewStaffUseCase(staffAccounts(cfg.Auth.Accounts), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("staff accounts")
	}

	srv := api.NewServer(api.Deps{
		Issue:          usecase.NewIssueUseCase(st.Repo, encoder, image, logger, cfg.Runtime.Dev),
		Lookup:         usecase.NewLookupUseCase(st.Repo, imageCache, cfg.Redis.TTL, logger),
		Redeem:         usecase.NewRedeemUseCase(st.Repo, limit, logger),
		Staff:          staffUC,
		Auth:           api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.SecureCookie, cfg.Auth.CookieDomain, cfg.Auth.SessionTTL),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		ImageWidth:     cfg.QRCode.Width,
	}, logger)

	// ---- Pool stats sampler ----
	if st.Stats != nil {
		worker := sched.NewPoolStatsWorker(cfg.Scheduler.PoolStatsInterval, st.Stats, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- HTTP server ----
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
	case err := <-errc:
		logger.Error().Err(err).Msg("http server error")
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("bye")
}

func staffAccounts(in []config.AccountConfig) []model.StaffAccount {
	out := make([]model.StaffAccount, 0, len(in))
	for _, a := range in {
		out = append(out, model.StaffAccount{
			Username:     a.Username,
			PasswordHash: a.PasswordHash,
			Role:         model.ParseRole(a.Role),
		})
	}
	return out
}
