package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/goshak24/ScolioFrontend-sub001/internal/config"
	"github.com/goshak24/ScolioFrontend-sub001/internal/consumer"
	"github.com/goshak24/ScolioFrontend-sub001/internal/observability"
	httptransport "github.com/goshak24/ScolioFrontend-sub001/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatalf("KAFKA_BROKERS is required")
	}

	logger := observability.NewLogger(cfg.LogLevel)
	entry := logger.WithField("component", "adherence-consumer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	handler := consumer.NewPersistenceHandler(pool)
	if err := handler.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to prepare event log: %v", err)
	}

	metricsAddr := cfg.MetricsAddress
	if metricsAddr == "" {
		metricsAddr = ":9102"
	}
	metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
		Address:     metricsAddr,
		ReadTimeout: 5 * time.Second,
	}, promhttp.Handler())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Run(ctx, metricsSrv, cfg.ShutdownTimeout, entry); err != nil {
			entry.WithError(err).Error("metrics server stopped")
		}
	}()

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLogger := entry.WithField("topic", topic)
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(topicLogger))

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLogger.WithField("group", cfg.ConsumerGroupID).Info("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLogger.WithError(err).Error("consumer stopped with error")
			}
		}(reader)
	}

	observability.MarkStarted("adherence-consumer", time.Now())
	<-ctx.Done()
	entry.Info("consumer shutdown requested")
	wg.Wait()
}
