package exchange

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"pairwatch-go/internal/market"
)

// runStub emits a synthetic path per symbol. All symbols share a slow sine cycle, so any two stub legs
// are strongly correlated and their spread mean-reverts.
func (f *Feed) runStub(ctx context.Context, symbol string, h Handler) error {
	seed := stubSeed(symbol)
	rng := rand.New(rand.NewSource(int64(seed)))
	basePx := 50 + float64(seed%1000)

	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	var step int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			px := basePx * (1 + 0.02*math.Sin(float64(step)/40) + 0.001*rng.NormFloat64())
			tk := market.Tick{Symbol: symbol, Ts: ts.UTC(), Price: px, Qty: 0.5 + rng.Float64()}
			if err := deliver(ctx, h, tk); err != nil {
				return err
			}
		}
	}
}

func stubSeed(symbol string) uint32 {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(symbol))
	return hasher.Sum32()
}
