// Command apiserver is the request-handling process: it owns
// StartRun/GetRunStatus over HTTP and runs the orchestrator. The worker
// pool that actually resolves channels runs as a separate process
// (cmd/worker), coordinating with this one over the shared Redis-backed
// state and work queue rather than any in-process call.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/ytresolver/internal/apihandlers"
	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/config"
	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/finalizer"
	"github.com/example/ytresolver/internal/httpmw"
	"github.com/example/ytresolver/internal/logging"
	"github.com/example/ytresolver/internal/metrics"
	"github.com/example/ytresolver/internal/orchestrator"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/store"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Msg("starting ytresolver api server")

	m := metrics.New()
	clk := clock.New()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		PoolSize: cfg.RedisMaxConnections,
	})
	defer redisClient.Close()
	counterSvc := counter.NewRedisService(redisClient)

	brokerClient := redis.NewClient(&redis.Options{Addr: cfg.BrokerURL})
	defer brokerClient.Close()
	q := queue.NewRedisQueue(brokerClient)

	state := store.NewRedisState(redisClient)
	fin := finalizer.New(state, counterSvc, clk, m)
	orch := orchestrator.New(state, q, fin, clk)

	handler := setupRouter(cfg, orch, logger, m)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("stopped gracefully")
}

func setupRouter(cfg *config.Config, orch *orchestrator.Orchestrator, logger zerolog.Logger, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", apihandlers.Health())
	mux.Handle("/metrics", promhttp.Handler())

	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("/runs", apihandlers.StartRun(orch, logger))
	protectedMux.HandleFunc("/runs/", apihandlers.GetRunStatus(orch, logger))

	protected := httpmw.Chain(
		protectedMux,
		httpmw.Auth(cfg.JWTSecret),
	)
	mux.Handle("/runs", protected)
	mux.Handle("/runs/", protected)

	return httpmw.Chain(
		mux,
		httpmw.Recovery(logger),
		httpmw.RequestID(),
		httpmw.Logging(logger),
		httpmw.Metrics(m),
		httpmw.CORS([]string{"*"}),
	)
}
