package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"exohab/internal/cfg"
	"exohab/internal/metrics"
	"exohab/internal/ml"
	"exohab/internal/predict"
	"exohab/internal/server"
	"exohab/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	m := metrics.New()
	bundle := loadBundle(c, m)
	defer bundle.Close()

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	svc := predict.New(bundle,
		predict.WithBatchLimit(c.BatchLimit),
		predict.WithWorkers(c.BatchWorkers),
		predict.WithMetrics(metrics.NewWrapper(m)),
	)

	opts := server.Options{
		Addr:           c.Addr(),
		MaxBodyBytes:   c.MaxBodyBytes,
		RequestTimeout: c.RequestTimeout,
		HistoryLimit:   c.HistoryLimit,
		Metrics:        m,
	}
	if store != nil {
		opts.Store = store
	}
	srv := server.New(svc, bundle, opts)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	waitForShutdown(srv, c, serverErr)
}

// setupLogging applies the configured level and output format to the global logger
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// loadBundle loads the model artifacts. A bundle that fails to load is still
// returned so the server can report why it is not ready.
func loadBundle(c cfg.Settings, m *metrics.Metrics) *ml.Bundle {
	bundle := ml.Load(ml.LoadOptions{
		ModelPath:  c.ModelPath,
		ScalerPath: c.ScalerPath,
		Format:     c.ModelFormat,
		ONNX: ml.ONNXConfig{
			LibraryPath:       c.ONNX.LibraryPath,
			InputName:         c.ONNX.InputName,
			LabelOutput:       c.ONNX.LabelOutput,
			ProbabilityOutput: c.ONNX.ProbabilityOutput,
		},
	})

	status := bundle.Status()
	m.SetArtifacts(status.ModelLoaded, status.ScalerLoaded, bundle.ModelAge().Seconds())
	if !bundle.Ready() {
		log.Warn().Interface("errors", status.Errors).Msg("model artifacts not loaded, predictions will be refused")
	}
	return bundle
}

// initializeStorage opens the prediction history store if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if !c.HistoryEnabled() {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

func waitForShutdown(srv *server.Server, c cfg.Settings, serverErr <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
