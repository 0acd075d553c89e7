// Command worker is the job-processing consumer: a separate process from
// cmd/apiserver, coordinating with it only through the shared Redis-backed
// state and work queue. It wires the full
// retry/rate-limit/key-rotation/resolver stack and drains both the job
// queue and the finalize queue.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/ytresolver/internal/clock"
	"github.com/example/ytresolver/internal/config"
	"github.com/example/ytresolver/internal/counter"
	"github.com/example/ytresolver/internal/finalizer"
	"github.com/example/ytresolver/internal/keyrotator"
	"github.com/example/ytresolver/internal/logging"
	"github.com/example/ytresolver/internal/metrics"
	"github.com/example/ytresolver/internal/queue"
	"github.com/example/ytresolver/internal/ratelimit"
	"github.com/example/ytresolver/internal/resolver"
	"github.com/example/ytresolver/internal/retry"
	"github.com/example/ytresolver/internal/store"
	"github.com/example/ytresolver/internal/worker"
	"github.com/example/ytresolver/internal/ytapi"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Msg("starting ytresolver worker")

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

	rotator := keyrotator.New(cfg.YTAPIKeys, clk)
	limiter := ratelimit.New(counterSvc, clk)
	pipeline := retry.New(rotator, limiter, clk, retry.ConfigFromApp(cfg), m)
	apiClient := ytapi.New(pipeline, &http.Client{})
	res := resolver.New(apiClient)

	w := worker.New(state, res, q, cfg.Worker, m, clk, logger)
	fin := finalizer.New(state, counterSvc, clk, m)

	ctx, cancel := context.WithCancel(context.Background())

	go w.Run(ctx)
	go runFinalizerLoop(ctx, q, fin, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

func runFinalizerLoop(ctx context.Context, q queue.Queue, fin *finalizer.Finalizer, logger zerolog.Logger) {
	for {
		runID, err := q.DequeueFinalize(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("dequeue finalize failed")
			continue
		}
		if _, err := fin.Finalize(ctx, runID); err != nil {
			logger.Error().Err(err).Uint64("run_id", runID).Msg("finalize failed")
		}
	}
}
