// Package main provides the entrypoint for the RainGauge worker. The worker
// listens on Pub/Sub for feed-ingest and imputation jobs and exposes a small
// health endpoint for Cloud Run.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/raingauge/raingauge/internal/api/middleware"
	"github.com/raingauge/raingauge/internal/database"
	"github.com/raingauge/raingauge/internal/feed/knmi"
	"github.com/raingauge/raingauge/internal/gauge"
	"github.com/raingauge/raingauge/internal/observation"
	"github.com/raingauge/raingauge/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "raingauge-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting RainGauge worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Services
	gaugeService := gauge.NewService(gauge.ServiceConfig{
		Repository: gauge.NewPostgresRepository(pool),
		Logger:     log,
	})
	obsService := observation.NewService(observation.ServiceConfig{
		Repository: observation.NewPostgresRepository(pool),
		Logger:     log,
	})

	// Upstream precipitation feed
	feedMetrics, err := middleware.NewFeedMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create feed metrics")
	}
	feedClient := knmi.NewClient(knmi.ClientConfig{
		BaseURL: os.Getenv("KNMI_BASE_URL"),
		APIKey:  os.Getenv("KNMI_API_KEY"),
		Metrics: feedMetrics,
	})

	// Jobs
	imputeJob := worker.NewImputeJob(worker.ImputeJobConfig{
		Config:       worker.RunConfigFromEnv(),
		Logger:       log,
		Gauges:       gaugeService,
		Observations: obsService,
	})
	ingestJob := worker.NewIngestJob(worker.IngestJobConfig{
		Logger:       log,
		Provider:     feedClient,
		ProviderName: knmi.ProviderName,
		Gauges:       gaugeService,
		Observations: obsService,
	})

	// Pub/Sub handler
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "raingauge-jobs"
	}

	var handler *worker.PubSubHandler
	if projectID != "" {
		handler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			ImputeJob:        imputeJob,
			IngestJob:        ingestJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - running without job subscription")
	}

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})
	mux.HandleFunc("/metrics/runs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		m := imputeJob.Metrics()
		fmt.Fprintf(w, `{"total_runs":%d,"failed_runs":%d,"cells_filled":%d,"rows_written":%d}`,
			m.TotalRuns, m.FailedRuns, m.CellsFilled, m.RowsWritten)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Start processing Pub/Sub messages
	if handler != nil {
		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
