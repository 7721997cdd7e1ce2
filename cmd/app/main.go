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

	"pdf-summarizer/internal/config"
	"pdf-summarizer/internal/domain/ports/adapter"
	"pdf-summarizer/internal/infra/adapters/pdfcheck"
	"pdf-summarizer/internal/infra/adapters/summarizer"
	"pdf-summarizer/internal/infra/i18n"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/infra/metrics"
	"pdf-summarizer/internal/infra/sched"
	"pdf-summarizer/internal/infra/web"
	"pdf-summarizer/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metrics.MustRegister()
		metrics.SetBuildInfo(version, commit)
		metricsHandler = metrics.Handler()
	}

	// ---- Adapters ----
	api, err := summarizer.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("summarizer client")
	}
	var inspector adapter.PDFInspector
	if cfg.Upload.ValidatePDF {
		inspector = pdfcheck.NewInspector()
	}
	msgs := i18n.MustDefault(cfg.Web.Lang)

	// ---- Use cases ----
	tracker := usecase.NewTrackerUseCase(api, inspector, msgs, usecase.TrackerConfig{
		Poll: sched.PollerConfig{
			Interval:    cfg.Poll.Interval,
			MaxDuration: cfg.Poll.MaxDuration,
			TickTimeout: cfg.Poll.TickTimeout,
		},
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, logger)
	defer tracker.Close()

	// ---- HTTP server ----
	srv := web.NewServer(tracker, msgs, web.Options{
		Lang:           msgs.Lang(),
		RefreshEvery:   cfg.Poll.Interval,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Metrics:        metricsHandler,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("backend", cfg.API.BaseURL).
			Str("version", version).
			Msg("web ui listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
