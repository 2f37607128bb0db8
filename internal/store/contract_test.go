package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch-go/internal/market"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// runContract exercises the behaviour every backend must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("unknown symbol is empty", func(t *testing.T) {
		st := newStore(t)
		got, err := st.Recent(context.Background(), "nope", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("non-positive limit is empty", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Append(context.Background(), market.Tick{Symbol: "btcusdt", Ts: base, Price: 1, Qty: 1}))
		got, err := st.Recent(context.Background(), "btcusdt", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("out of order appends read ascending", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		offsets := []int{3, 1, 4, 0, 2}
		for _, off := range offsets {
			tk := market.Tick{Symbol: "BTCUSDT", Ts: base.Add(time.Duration(off) * time.Second), Price: float64(100 + off), Qty: 1}
			require.NoError(t, st.Append(ctx, tk))
		}
		got, err := st.Recent(ctx, "btcusdt", 10)
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, tk := range got {
			assert.Equal(t, "btcusdt", tk.Symbol)
			assert.True(t, tk.Ts.Equal(base.Add(time.Duration(i)*time.Second)), "index %d has ts %s", i, tk.Ts)
			assert.Equal(t, float64(100+i), tk.Price)
		}
	})

	t.Run("limit keeps the newest ticks", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		for i := 0; i < 10; i++ {
			require.NoError(t, st.Append(ctx, market.Tick{Symbol: "ethusdt", Ts: base.Add(time.Duration(i) * time.Second), Price: float64(i + 1), Qty: 1}))
		}
		got, err := st.Recent(ctx, "ethusdt", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []float64{8, 9, 10}, []float64{got[0].Price, got[1].Price, got[2].Price})
	})

	t.Run("duplicate timestamps are kept in arrival order", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Append(ctx, market.Tick{Symbol: "btcusdt", Ts: base, Price: 1, Qty: 1}))
		require.NoError(t, st.Append(ctx, market.Tick{Symbol: "btcusdt", Ts: base, Price: 2, Qty: 1}))
		got, err := st.Recent(ctx, "btcusdt", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1.0, got[0].Price)
		assert.Equal(t, 2.0, got[1].Price)
	})

	t.Run("limit breaks timestamp ties by newest arrival", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 10; i++ {
			require.NoError(t, st.Append(ctx, market.Tick{Symbol: "btcusdt", Ts: base, Price: float64(i), Qty: 1}))
		}
		got, err := st.Recent(ctx, "btcusdt", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 10.0, got[0].Price)

		got, err = st.Recent(ctx, "btcusdt", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []float64{8, 9, 10}, []float64{got[0].Price, got[1].Price, got[2].Price})
	})

	t.Run("invalid ticks are rejected", func(t *testing.T) {
		st := newStore(t)
		err := st.Append(context.Background(), market.Tick{Symbol: "btcusdt", Ts: base, Price: -1, Qty: 1})
		assert.True(t, errors.Is(err, ErrInvalidTick))
	})

	t.Run("concurrent writers do not interfere", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for _, sym := range []string{"btcusdt", "ethusdt"} {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					tk := market.Tick{Symbol: sym, Ts: base.Add(time.Duration(i) * time.Millisecond), Price: float64(i + 1), Qty: 1}
					if err := st.Append(ctx, tk); err != nil {
						t.Errorf("append %s: %v", sym, err)
						return
					}
				}
			}(sym)
		}
		wg.Wait()
		for _, sym := range []string{"btcusdt", "ethusdt"} {
			got, err := st.Recent(ctx, sym, 100)
			require.NoError(t, err)
			require.Len(t, got, 50, fmt.Sprintf("symbol %s", sym))
			for _, tk := range got {
				assert.Equal(t, sym, tk.Symbol)
			}
		}
	})
}
