package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/api"
	"github.com/goshak24/ScolioFrontend-sub001/internal/auth"
	"github.com/goshak24/ScolioFrontend-sub001/internal/config"
	"github.com/goshak24/ScolioFrontend-sub001/internal/observability"
	"github.com/goshak24/ScolioFrontend-sub001/internal/orchestrator"
	"github.com/goshak24/ScolioFrontend-sub001/internal/outbox"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence/postgres"
	"github.com/goshak24/ScolioFrontend-sub001/internal/persistence/sqlite"
	"github.com/goshak24/ScolioFrontend-sub001/internal/remote"
	"github.com/goshak24/ScolioFrontend-sub001/internal/session"
	httptransport "github.com/goshak24/ScolioFrontend-sub001/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	entry := logger.WithField("component", "adherence-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	var sink orchestrator.EventSink
	var dispatcher *outbox.Dispatcher
	if len(cfg.KafkaBrokers) > 0 {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, entry)
		defer producer.Close()

		dispatcher = outbox.NewDispatcher(producer, cfg.EventsTopic, cfg.PublishInterval, cfg.PublishBatch,
			outbox.WithLogger(entry.WithField("subsystem", "outbox")))
		go dispatcher.Start(ctx)
		sink = dispatcher
	} else {
		entry.Info("KAFKA_BROKERS not set; adherence events are not published")
	}

	newClient := func(credentials remote.CredentialSource) remote.Client {
		return remote.NewHTTPClient(cfg.RemoteBaseURL, credentials, cfg.RemoteTimeout)
	}
	sessions := session.NewRegistry(store, newClient, sink, session.Config{
		Location:   loc,
		MessageTTL: cfg.SuccessMessageTTL,
	}, entry.WithField("subsystem", "session"))
	defer sessions.Close()

	handler := api.NewHandler(sessions)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	if cfg.MetricsAddress == "" {
		mux.Handle("/metrics", promhttp.Handler())
	} else {
		metricsSrv := httptransport.NewServer(httptransport.ServerConfig{
			Address:     cfg.MetricsAddress,
			ReadTimeout: 5 * time.Second,
		}, promhttp.Handler())
		go func() {
			if err := httptransport.Run(ctx, metricsSrv, cfg.ShutdownTimeout, entry); err != nil {
				entry.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:8081")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.LoggingMiddleware(entry, cors(authMiddleware.Wrap(mux))))

	observability.MarkStarted("adherence-api", time.Now())
	if err := httptransport.Run(ctx, server, cfg.ShutdownTimeout, entry); err != nil {
		entry.WithError(err).Error("http server stopped")
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
	entry.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config) (persistence.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.StoreMemory:
		return persistence.NewMemory(), func() {}, nil
	default:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logrus.WithError(err).Warn("close sqlite store")
			}
		}, nil
	}
}
