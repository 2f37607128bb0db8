// Package ingest runs one feed consumer per symbol and persists every trade to the tick store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/exchange"
	"pairwatch-go/internal/market"
	"pairwatch-go/internal/metrics"
	"pairwatch-go/internal/store"
)

// Streamer delivers trades for one symbol until ctx ends or the handler fails.
type Streamer interface {
	Stream(ctx context.Context, symbol string, h exchange.Handler) error
}

// DefaultFailureBudget is how many consecutive failed writes a symbol task tolerates before it stops.
const DefaultFailureBudget = 20

// Ingestor writes feed trades into an injected store.
type Ingestor struct {
	feed          Streamer
	store         store.Store
	symbols       []string
	log           zerolog.Logger
	failureBudget int
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithFailureBudget sets the consecutive write failures tolerated per symbol. Non-positive keeps the default.
func WithFailureBudget(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.failureBudget = n
		}
	}
}

// New builds an ingestor for the given symbols. Symbols are lowercased and deduplicated.
func New(feed Streamer, st store.Store, symbols []string, log zerolog.Logger, opts ...Option) *Ingestor {
	seen := make(map[string]struct{}, len(symbols))
	var uniq []string
	for _, s := range symbols {
		s = market.NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		uniq = append(uniq, s)
	}
	in := &Ingestor{feed: feed, store: st, symbols: uniq, log: log, failureBudget: DefaultFailureBudget}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Symbols returns the normalized symbol list.
func (in *Ingestor) Symbols() []string {
	out := make([]string, len(in.symbols))
	copy(out, in.symbols)
	return out
}

// Run starts one goroutine per symbol and waits for all of them. Transport trouble on one symbol never
// touches the others, but a symbol that exhausts its failure budget cancels the whole run so the pair
// is never analyzed with one frozen leg. Cancellation is not reported as an error.
func (in *Ingestor) Run(ctx context.Context) error {
	if len(in.symbols) == 0 {
		return errors.New("ingestor requires at least one symbol")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, sym := range in.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			err := in.RunSymbol(ctx, sym)
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			in.log.Error().Stack().Err(err).Str("symbol", sym).Msg("ingestion stopped")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			cancel()
		}(sym)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// RunSymbol consumes one symbol's stream, appending each trade. Malformed ticks are dropped.
// A failed write drops that tick and the stream continues; the task ends only after
// failureBudget consecutive failures, returning the last store error.
func (in *Ingestor) RunSymbol(ctx context.Context, symbol string) error {
	symbol = market.NormalizeSymbol(symbol)
	in.log.Info().Str("symbol", symbol).Msg("ingestion started")
	failures := 0
	return in.feed.Stream(ctx, symbol, func(ctx context.Context, tk market.Tick) error {
		if tk.Symbol == "" {
			tk.Symbol = symbol
		}
		// the in-flight record completes even if ctx was canceled mid-message
		err := in.store.Append(context.WithoutCancel(ctx), tk)
		switch {
		case err == nil:
			failures = 0
			metrics.TicksTotal.WithLabelValues(symbol).Inc()
			return nil
		case errors.Is(err, store.ErrInvalidTick):
			metrics.FeedMessagesSkipped.WithLabelValues(symbol, "invalid_tick").Inc()
			in.log.Debug().Err(err).Str("symbol", symbol).Msg("dropping invalid tick")
			return nil
		default:
			failures++
			metrics.StoreErrors.WithLabelValues("append").Inc()
			if failures >= in.failureBudget {
				return fmt.Errorf("%d consecutive store failures: %w", failures, err)
			}
			in.log.Warn().Err(err).Str("symbol", symbol).Int("consecutive", failures).Msg("tick write failed, dropping tick")
			return nil
		}
	})
}
