package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tracelot/internal/events"
	eventshandler "tracelot/internal/events/handler"
	kafkasink "tracelot/internal/events/sink/kafka"
	"tracelot/internal/events/sink/redisstream"
	eventsmem "tracelot/internal/events/store/memory"
	"tracelot/internal/jwtauth"
	"tracelot/internal/ledger"
	ledgerhandler "tracelot/internal/ledger/handler"
	ledgermetrics "tracelot/internal/ledger/metrics"
	"tracelot/internal/ledger/service"
	"tracelot/internal/ledger/store/items"
	"tracelot/internal/platform/config"
	"tracelot/internal/platform/httpserver"
	"tracelot/internal/platform/logger"
	"tracelot/internal/platform/metrics"
	"tracelot/internal/platform/middleware"
	platformredis "tracelot/internal/platform/redis"
	"tracelot/internal/platform/tracing"
	ratelimitmw "tracelot/internal/ratelimit/middleware"
	"tracelot/internal/ratelimit/store/bucket"
)

// main wires the registry's dependencies and owns the process lifecycle.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	tracer, err := tracing.NewProvider(ctx, cfg.Tracing, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher := events.NewPublisher(cfg.EventBuffer, log)
	eventLog := eventsmem.NewStore()
	sinks := []events.Sink{eventLog}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		sinks = append(sinks, redisstream.New(redisClient.Client, cfg.Redis.Stream))
		log.Info("redis stream sink enabled", "stream", cfg.Redis.Stream)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := kafkasink.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		if err := kafka.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}
		sinks = append(sinks, kafka)
		log.Info("kafka sink enabled", "topic", cfg.Kafka.Topic)
	}

	worker := events.NewWorker(publisher.Inbox(), log, sinks...)

	svc := ledger.NewService(store,
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(ledgermetrics.New()),
		service.WithTracer(tracer.Tracer()),
	)

	verifier := jwtauth.New(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	limiter := ratelimitmw.New(bucket.NewInMemoryBucketStore(), log,
		ratelimitmw.WithDisabled(!cfg.RateLimitEnabled),
	)
	mintGuard := limiter.LimitByIP(cfg.MintRateLimit, cfg.MintRateWindow)

	ledgerHandler := ledger.NewHandler(svc, verifier, log,
		ledgerhandler.WithMintGuard(mintGuard),
	)
	eventsHandler := eventshandler.New(eventLog, log)

	httpMetrics := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.RequestID)
	router.Use(httpMetrics.Middleware)
	router.Get("/healthz", healthz(redisClient))
	router.Handle("/metrics", promhttp.Handler())
	ledgerHandler.Register(router)
	eventsHandler.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting tracelot", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks postgres when a DSN is configured, in-memory otherwise.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (service.LedgerStore, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info("using in-memory ledger store")
		return items.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	pg := items.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("using postgres ledger store")
	return pg, func() { _ = db.Close() }, nil
}

func healthz(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
