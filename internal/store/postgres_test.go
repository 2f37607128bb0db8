package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"pairwatch-go/internal/market"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("ticks_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresContract(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	runContract(t, func(t *testing.T) Store {
		st, err := NewPostgres(ctx, PostgresConfig{DSN: dsn, MaxConns: 4})
		require.NoError(t, err)
		require.NoError(t, st.Migrate(ctx))
		_, err = st.pool.Exec(ctx, "TRUNCATE ticks RESTART IDENTITY")
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestPostgresSchemaAndBatch(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	st, err := NewPostgres(ctx, PostgresConfig{DSN: dsn})
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Migrate(ctx), "migration must be idempotent")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var indexes []string
	rows, err := pool.Query(ctx, `SELECT indexname FROM pg_indexes WHERE tablename = 'ticks' ORDER BY indexname`)
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	rows.Close()
	assert.Contains(t, indexes, "ix_ticks_symbol")
	assert.Contains(t, indexes, "ix_ticks_symbol_ts")

	ticks := []market.Tick{
		{Symbol: "SOLUSDT", Ts: base.Add(2 * time.Second), Price: 3, Qty: 1},
		{Symbol: "solusdt", Ts: base, Price: 1, Qty: 1},
		{Symbol: "solusdt", Ts: base.Add(time.Second), Price: 2, Qty: 1},
	}
	n, err := st.AppendBatch(ctx, ticks)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := st.Recent(ctx, "solusdt", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Price)
	assert.Equal(t, 3.0, got[1].Price)
}

func TestNewPostgresBadDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), PostgresConfig{DSN: "::not a dsn::"})
	assert.Error(t, err)
}
