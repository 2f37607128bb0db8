package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/config"
)

const (
	// BackendMemory keeps ticks in process memory (lost on restart).
	BackendMemory = "memory"
	// BackendPostgres persists ticks through a pgx pool.
	BackendPostgres = "postgres"
	// BackendRedis keeps ticks in per-symbol sorted sets.
	BackendRedis = "redis"
)

// Open builds the configured backend, wrapping it in a journal when a path is set.
func Open(ctx context.Context, cfg config.Store, log zerolog.Logger) (Store, error) {
	var (
		st  Store
		err error
	)
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", BackendMemory:
		backend = BackendMemory
		st = NewMemory()
	case BackendPostgres:
		var pg *Postgres
		pg, err = NewPostgres(ctx, PostgresConfig{DSN: cfg.DSN, MaxConns: int32(cfg.MaxConns)})
		if err != nil {
			return nil, err
		}
		if err = pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		st = pg
	case BackendRedis:
		st, err = DialRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.JournalPath != "" {
		j, err := NewJournal(st, cfg.JournalPath)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.JournalPath).Msg("tick journal enabled")
		st = j
	}
	log.Info().Str("backend", backend).Msg("tick store ready")
	return st, nil
}
