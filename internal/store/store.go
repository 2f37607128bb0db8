// Package store owns the append-only tick ledger and its storage backends.
package store

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"pairwatch-go/internal/market"
)

// ErrInvalidTick rejects ticks that would corrupt downstream aggregation.
var ErrInvalidTick = errors.New("invalid tick")

// Store is the single writer target for raw trade prints.
type Store interface {
	// Append durably records one tick. Writes are atomic per record.
	Append(ctx context.Context, tk market.Tick) error
	// Recent returns up to limit most-recent ticks for symbol in ascending timestamp order.
	// Unknown symbols yield an empty slice and no error.
	Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error)
	Close() error
}

// BatchAppender is implemented by backends with a bulk load path.
type BatchAppender interface {
	AppendBatch(ctx context.Context, ticks []market.Tick) (int64, error)
}

// Validate normalizes the symbol and checks the tick is well formed.
func Validate(tk market.Tick) (market.Tick, error) {
	tk.Symbol = market.NormalizeSymbol(tk.Symbol)
	switch {
	case tk.Symbol == "":
		return tk, errors.Wrap(ErrInvalidTick, "empty symbol")
	case len(tk.Symbol) > 30:
		return tk, errors.Wrapf(ErrInvalidTick, "symbol %q longer than 30 chars", tk.Symbol)
	case tk.Ts.IsZero():
		return tk, errors.Wrap(ErrInvalidTick, "zero timestamp")
	case !(tk.Price > 0) || math.IsInf(tk.Price, 0):
		return tk, errors.Wrapf(ErrInvalidTick, "price %v", tk.Price)
	case tk.Qty < 0 || math.IsNaN(tk.Qty) || math.IsInf(tk.Qty, 0):
		return tk, errors.Wrapf(ErrInvalidTick, "qty %v", tk.Qty)
	}
	tk.Ts = tk.Ts.UTC()
	return tk, nil
}

// SortTicks orders ticks by timestamp, breaking ties by insertion id.
func SortTicks(ticks []market.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		if ticks[i].Ts.Equal(ticks[j].Ts) {
			return ticks[i].ID < ticks[j].ID
		}
		return ticks[i].Ts.Before(ticks[j].Ts)
	})
}
