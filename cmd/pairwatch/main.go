package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/analytics"
	"pairwatch-go/internal/config"
	"pairwatch-go/internal/exchange"
	"pairwatch-go/internal/ingest"
	"pairwatch-go/internal/metrics"
	"pairwatch-go/internal/store"
	"pairwatch-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	dotenv := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	boot := util.NewLogger("info")
	cfg, err := config.LoadWithEnv(*configPath, *dotenv)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()

	symA, symB, err := cfg.Pair()
	if err != nil {
		log.Fatal().Err(err).Msg("pair config")
	}
	params, err := analytics.ParamsFromConfig(cfg.Analytics)
	if err != nil {
		log.Fatal().Err(err).Msg("analytics config")
	}

	if err := run(cfg, symA, symB, params, log); err != nil {
		log.Fatal().Err(err).Msg("pairwatch stopped")
	}
}

// run owns every resource so deferred closes happen before main exits.
func run(cfg *config.Config, symA, symB string, params analytics.Params, log zerolog.Logger) error {
	srv := metrics.Serve(cfg.App.MetricsAddr)
	defer srv.Close()
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	sigCtx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer st.Close()

	feed := exchange.NewFeed(cfg.Feed.Provider, log,
		exchange.WithBaseURL(cfg.Feed.BaseURL),
		exchange.WithTimeouts(
			config.Millis(cfg.Feed.HandshakeTimeoutMs, 0),
			config.Millis(cfg.Feed.ReadTimeoutMs, 0),
			config.Millis(cfg.Feed.PingIntervalMs, 0),
		),
		exchange.WithBackoff(exchange.Backoff{
			Initial: config.Millis(cfg.Feed.BackoffInitialMs, 0),
			Max:     config.Millis(cfg.Feed.BackoffMaxMs, 0),
			Factor:  cfg.Feed.BackoffFactor,
		}),
	)
	ingestor := ingest.New(feed, st, cfg.Feed.Symbols, log, ingest.WithFailureBudget(cfg.Store.FailureBudget))
	svc := analytics.NewService(st, symA, symB, params, log)
	runner := analytics.NewRunner(svc, config.Millis(cfg.Analytics.RefreshMs, 5*time.Second), log, analytics.LogSink(log))

	var (
		wg        sync.WaitGroup
		ingestErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		// a dead leg stops analytics too
		defer cancel()
		ingestErr = ingestor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("analytics stopped")
		}
	}()

	log.Info().Str("pair", symA+"/"+symB).Str("provider", feed.Provider()).Msg("pairwatch started")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()
	return ingestErr
}
