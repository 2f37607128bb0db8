package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"pairwatch-go/internal/market"
)

const defaultRedisPrefix = "pairwatch"

// Redis keeps each symbol's ticks in a sorted set scored by epoch microseconds.
// Members are "<zero-padded id>:<json>", so identical prints at the same instant stay distinct and
// ties on score order lexically by arrival.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

type redisMember struct {
	ID    int64   `json:"id"`
	Ts    int64   `json:"ts"`
	Price float64 `json:"p"`
	Qty   float64 `json:"q"`
}

// NewRedis wraps an existing client. An empty prefix falls back to "pairwatch".
func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// DialRedis connects to addr and verifies it answers PING.
func DialRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	return NewRedis(rdb, prefix), nil
}

func (r *Redis) ticksKey(symbol string) string { return fmt.Sprintf("%s:ticks:%s", r.prefix, symbol) }
func (r *Redis) seqKey() string                { return r.prefix + ":ticks:seq" }

// Append allocates a sequence id and adds the tick with a single ZADD.
func (r *Redis) Append(ctx context.Context, tk market.Tick) error {
	tk, err := Validate(tk)
	if err != nil {
		return err
	}
	id, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return errors.Wrap(err, "allocate tick id")
	}
	b, err := json.Marshal(redisMember{ID: id, Ts: tk.Ts.UnixMicro(), Price: tk.Price, Qty: tk.Qty})
	if err != nil {
		return errors.Wrap(err, "encode tick")
	}
	z := redis.Z{Score: float64(tk.Ts.UnixMicro()), Member: fmt.Sprintf("%020d:%s", id, b)}
	if err := r.rdb.ZAdd(ctx, r.ticksKey(tk.Symbol), z).Err(); err != nil {
		return errors.Wrap(err, "zadd tick")
	}
	return nil
}

// Recent reads the newest limit members and returns them ascending.
func (r *Redis) Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error) {
	if limit <= 0 {
		return []market.Tick{}, nil
	}
	symbol = market.NormalizeSymbol(symbol)
	members, err := r.rdb.ZRevRange(ctx, r.ticksKey(symbol), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "zrevrange ticks")
	}
	out := make([]market.Tick, 0, len(members))
	for _, raw := range members {
		_, payload, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, errors.Errorf("decode tick member %q: missing id prefix", raw)
		}
		var m redisMember
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, errors.Wrap(err, "decode tick member")
		}
		out = append(out, market.Tick{
			ID:     m.ID,
			Symbol: symbol,
			Ts:     unixMicroUTC(m.Ts),
			Price:  m.Price,
			Qty:    m.Qty,
		})
	}
	SortTicks(out)
	return out, nil
}

// Close shuts the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
