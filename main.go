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

	"phisheye/classifier"
	"phisheye/config"
	"phisheye/domainintel"
	"phisheye/features"
	"phisheye/lexical"
	"phisheye/scoring"
	"phisheye/signals"
	"phisheye/vetting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// A missing or mismatched model is fatal: the service never scores
	// without a classifier.
	model, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		logger.Error("failed to load model", "path", cfg.Model.Path, "err", err)
		os.Exit(1)
	}
	if err := features.CheckSchema(model.FeatureNames(), features.SchemaV1); err != nil {
		logger.Error("model does not match feature schema", "schema", features.SchemaVersion, "err", err)
		os.Exit(1)
	}

	composer, err := scoring.NewComposer(cfg.Scoring.Weights, cfg.Scoring.Thresholds, cfg.Scoring.HighProbability)
	if err != nil {
		logger.Error("invalid scoring configuration", "err", err)
		os.Exit(1)
	}

	registry := domainintel.NewWhoisRegistry(cfg.Registry.Timeout, cfg.Registry.QueriesPerSecond, cfg.Registry.Burst)
	resolver := domainintel.NewResolver(registry, domainintel.Options{
		Timeout:          cfg.Registry.Timeout,
		MaxRetries:       cfg.Registry.MaxRetries,
		Backoff:          cfg.Registry.Backoff,
		RateLimitBackoff: cfg.Registry.RateLimitBackoff,
		Logger:           logger,
	})

	opts := vetting.Options{
		Extractor:      lexical.NewExtractor(cfg.Lists),
		Resolver:       resolver,
		Scorer:         model,
		Aggregator:     signals.NewAggregator(cfg.TrustedDomains),
		Composer:       composer,
		Schema:         features.SchemaV1,
		RequestTimeout: cfg.Server.RequestTimeout,
		TopFeatures:    cfg.Model.TopFeatures,
		MaxBatch:       cfg.Server.MaxBatch,
		BatchWorkers:   cfg.Server.BatchWorkers,
		Logger:         logger,
	}
	if cfg.Content.Enabled {
		opts.Content = signals.NewContentProber(signals.ContentOptions{
			Timeout:      cfg.Content.Timeout,
			SkipChromedp: cfg.Content.SkipChromedp,
			ChromePath:   cfg.Content.ChromePath,
			Logger:       logger,
		})
	}
	if cfg.Mail.Enabled {
		opts.Mail = signals.NewMailProber(nil, cfg.Mail.Timeout)
	}

	analyzer, err := vetting.NewAnalyzer(opts)
	if err != nil {
		logger.Error("failed to build analyzer", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      vetting.NewRouter(vetting.NewHandler(analyzer, logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	info := model.Info()
	logger.Info("phisheye listening",
		"port", cfg.Server.Port,
		"model", info.Version,
		"features", info.FeatureCount,
		"lookup_budget", resolver.Budget(),
		"content_probe", cfg.Content.Enabled,
		"mail_probe", cfg.Mail.Enabled,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
