package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/adapter/firms"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/gdacs"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/hazard-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/nominatim"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/usgs"
	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	adapters := []pipeline.FeedAdapter{
		usgs.NewClient(usgs.Config{
			HourlyURL: cfg.Feeds.USGS.HourlyURL,
			DailyURL:  cfg.Feeds.USGS.DailyURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		}, metrics, logger),
		gdacs.NewClient(gdacs.Config{
			URL:       cfg.Feeds.GDACS.URL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		}, clk, metrics, logger),
		firms.NewClient(firms.Config{
			PrimaryURL:    cfg.Feeds.FIRMS.PrimaryURL,
			AlternateURLs: cfg.Feeds.FIRMS.AlternateURLs,
			UserAgent:     cfg.UserAgent,
			Timeout:       cfg.FetchTimeout,
		}, clk, metrics, logger),
	}

	geocoder := nominatim.NewClient(nominatim.Config{
		BaseURL:   cfg.Feeds.Nominatim.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, metrics, logger)

	// Kafka sink is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(adapters, geocoder, publisher, clk, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, p, httpapi.Defaults{
		HoursBack:    cfg.DefaultHoursBack,
		MinHoursBack: cfg.MinHoursBack,
		MaxHoursBack: cfg.MaxHoursBack,
		AOIQuery:     cfg.DefaultAOIQuery,
		RadiusKM:     cfg.DefaultRadiusKM,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
