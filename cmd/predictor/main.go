package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/feature-prediction-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/feature-prediction-service/internal/adapter/kafka"
	"github.com/couchcryptid/feature-prediction-service/internal/config"
	"github.com/couchcryptid/feature-prediction-service/internal/lookuptable"
	"github.com/couchcryptid/feature-prediction-service/internal/observability"
	"github.com/couchcryptid/feature-prediction-service/internal/pipeline"
	"github.com/couchcryptid/feature-prediction-service/internal/predictor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tables, err := lookuptable.LoadRegistry(ctx, cfg.LookupTableDir)
	if err != nil {
		logger.Error("failed to load lookup tables", "dir", cfg.LookupTableDir, "error", err)
		os.Exit(1)
	}
	metrics.TablesLoaded.Set(float64(tables.Len()))
	logger.Info("lookup tables loaded", "dir", cfg.LookupTableDir, "count", tables.Len())

	pred := predictor.New(tables, predictor.Options{
		Extrapolate: cfg.ExtrapolateGridpoints,
		CacheSize:   cfg.UtilityCacheSize,
		Velocities: predictor.Velocities{
			P: cfg.ElevationVelocityP,
			S: cfg.ElevationVelocityS,
		},
	}, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(pred, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize, cfg.PredictionWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, pred, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
