package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/config"
	"pairwatch-go/internal/market"
	"pairwatch-go/internal/store"
	"pairwatch-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	journal := flag.String("journal", "", "JSONL tick journal to load")
	flag.Parse()

	log := util.NewLogger("info")
	if *journal == "" {
		log.Fatal().Msg("-journal is required")
	}
	cfg, err := config.LoadWithEnv(*configPath, ".env")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := checkTarget(cfg.Store); err != nil {
		log.Fatal().Err(err).Msg("replay target")
	}
	// never re-journal what is being replayed
	cfg.Store.JournalPath = ""

	ticks, err := store.ReadJournal(*journal)
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("read journal")
	}

	if err := replay(cfg.Store, ticks, log); err != nil {
		log.Fatal().Stack().Err(err).Msg("replay failed")
	}
}

// checkTarget rejects backends that would not outlive this process.
func checkTarget(cfg config.Store) error {
	if b := strings.ToLower(strings.TrimSpace(cfg.Backend)); b == "" || b == store.BackendMemory {
		return fmt.Errorf("replay into the %q backend is discarded on exit; set store.backend to postgres or redis", store.BackendMemory)
	}
	return nil
}

func replay(cfg config.Store, ticks []market.Tick, log zerolog.Logger) error {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if batch, ok := st.(store.BatchAppender); ok {
		n, err := batch.AppendBatch(ctx, ticks)
		if err != nil {
			return err
		}
		log.Info().Int64("rows", n).Msg("journal replayed")
		return nil
	}

	var loaded, skipped int
	for _, tk := range ticks {
		if err := st.Append(ctx, tk); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			skipped++
			log.Warn().Err(err).Msg("skipping tick")
			continue
		}
		loaded++
	}
	log.Info().Int("rows", loaded).Int("skipped", skipped).Msg("journal replayed")
	return nil
}
