package store

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"pairwatch-go/internal/market"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the ticks relation and its indexes.
func Schema() string { return schemaSQL }

// Postgres persists ticks in a single append-only relation.
type Postgres struct {
	pool *pgxpool.Pool
}

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// NewPostgres opens a pool and verifies connectivity.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the ticks relation and indexes when absent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "apply tick schema")
	}
	return nil
}

// Append inserts one row; a single INSERT is atomic.
func (p *Postgres) Append(ctx context.Context, tk market.Tick) error {
	tk, err := Validate(tk)
	if err != nil {
		return err
	}
	const query = `INSERT INTO ticks (ts, symbol, price, qty) VALUES ($1, $2, $3, $4)`
	if _, err := p.pool.Exec(ctx, query, tk.Ts, tk.Symbol, tk.Price, tk.Qty); err != nil {
		return errors.Wrap(err, "insert tick")
	}
	return nil
}

// AppendBatch bulk loads ticks through COPY.
func (p *Postgres) AppendBatch(ctx context.Context, ticks []market.Tick) (int64, error) {
	rows := make([][]any, 0, len(ticks))
	for _, tk := range ticks {
		tk, err := Validate(tk)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{tk.Ts, tk.Symbol, tk.Price, tk.Qty})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"ticks"},
		[]string{"ts", "symbol", "price", "qty"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, errors.Wrap(err, "copy ticks")
	}
	return n, nil
}

// Recent scans the (symbol, ts) index newest-first and re-sorts ascending.
func (p *Postgres) Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error) {
	if limit <= 0 {
		return []market.Tick{}, nil
	}
	const query = `
		SELECT id, ts, symbol, price, qty
		FROM ticks
		WHERE symbol = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`
	rows, err := p.pool.Query(ctx, query, market.NormalizeSymbol(symbol), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent ticks")
	}
	defer rows.Close()

	out := make([]market.Tick, 0, limit)
	for rows.Next() {
		var tk market.Tick
		if err := rows.Scan(&tk.ID, &tk.Ts, &tk.Symbol, &tk.Price, &tk.Qty); err != nil {
			return nil, errors.Wrap(err, "scan tick")
		}
		tk.Ts = tk.Ts.UTC()
		out = append(out, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate ticks")
	}
	SortTicks(out)
	return out, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
