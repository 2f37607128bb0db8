package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pairwatch-go/internal/config"
	"pairwatch-go/internal/store"
	"pairwatch-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	printOnly := flag.Bool("print", false, "print the schema instead of applying it")
	flag.Parse()

	if *printOnly {
		fmt.Print(store.Schema())
		return
	}

	log := util.NewLogger("info")
	cfg, err := config.LoadWithEnv(*configPath, ".env")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Store.DSN == "" {
		fmt.Fprintln(os.Stderr, "store.dsn (or PAIRWATCH_DATABASE_URL) is required")
		os.Exit(2)
	}

	if err := migrate(context.Background(), cfg.Store.DSN); err != nil {
		log.Fatal().Stack().Err(err).Msg("apply schema")
	}
	log.Info().Msg("tick schema applied")
}

func migrate(ctx context.Context, dsn string) error {
	pg, err := store.NewPostgres(ctx, store.PostgresConfig{DSN: dsn})
	if err != nil {
		return err
	}
	defer pg.Close()
	return pg.Migrate(ctx)
}
