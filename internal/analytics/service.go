// Package analytics is the read-side query layer: it pulls ticks from the store and recomputes every
// derived series on each call. Nothing it produces is cached or persisted.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/adf"
	"pairwatch-go/internal/candle"
	"pairwatch-go/internal/config"
	"pairwatch-go/internal/market"
	"pairwatch-go/internal/pairs"
	"pairwatch-go/internal/stats"
)

// Reader is the read half of the tick store.
type Reader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error)
}

// Params are the knobs of one refresh.
type Params struct {
	Interval     candle.Interval
	ZScoreWindow int
	CorrWindow   int
	MinPoints    int
	TickLimit    int
}

// ParamsFromConfig resolves the interval name and fills defaults for non-positive knobs.
func ParamsFromConfig(cfg config.Analytics) (Params, error) {
	iv, err := candle.GetInterval(cfg.Interval)
	if err != nil {
		return Params{}, err
	}
	p := Params{
		Interval:     iv,
		ZScoreWindow: cfg.ZScoreWindow,
		CorrWindow:   cfg.CorrWindow,
		MinPoints:    cfg.MinPoints,
		TickLimit:    cfg.TickLimit,
	}
	if p.ZScoreWindow <= 0 {
		p.ZScoreWindow = 60
	}
	if p.CorrWindow <= 0 {
		p.CorrWindow = p.ZScoreWindow
	}
	if p.MinPoints <= 0 {
		p.MinPoints = pairs.DefaultMinPoints
	}
	if p.TickLimit <= 0 {
		p.TickLimit = 10000
	}
	return p, nil
}

// Leg is one side of the pair after resampling.
type Leg struct {
	Symbol  string
	Ticks   int
	Candles []market.Candle
	Closes  market.Series
	ZScore  market.Series
}

// Snapshot is the full derived view of the pair at one refresh.
type Snapshot struct {
	At           time.Time
	Interval     string
	A, B         Leg
	Correlation  market.Series
	Hedge        pairs.HedgeEstimate
	Spread       market.Series
	SpreadZ      market.Series
	Stationarity adf.Result
}

// Pair renders "a/b".
func (s *Snapshot) Pair() string { return s.A.Symbol + "/" + s.B.Symbol }

// Latest returns the most recent value of each headline statistic. Undefined values are NaN.
func (s *Snapshot) Latest() map[string]float64 {
	last := func(series market.Series) float64 {
		if p, ok := series.Last(); ok {
			return p.Value
		}
		return math.NaN()
	}
	out := map[string]float64{
		"zscore_a":      last(s.A.ZScore),
		"zscore_b":      last(s.B.ZScore),
		"correlation":   last(s.Correlation),
		"hedge_ratio":   math.NaN(),
		"spread":        last(s.Spread),
		"spread_zscore": last(s.SpreadZ),
		"adf_statistic": s.Stationarity.Statistic,
		"adf_pvalue":    s.Stationarity.PValue,
	}
	if s.Hedge.Valid {
		out["hedge_ratio"] = s.Hedge.Beta
	}
	return out
}

// Service answers the presentation layer's queries for one pair.
type Service struct {
	reader  Reader
	symbolA string
	symbolB string
	params  Params
	log     zerolog.Logger
}

// NewService binds a store reader to a pair. symbolA is the dependent leg of the hedge regression.
func NewService(r Reader, symbolA, symbolB string, p Params, log zerolog.Logger) *Service {
	return &Service{
		reader:  r,
		symbolA: market.NormalizeSymbol(symbolA),
		symbolB: market.NormalizeSymbol(symbolB),
		params:  p,
		log:     log,
	}
}

// Params reports the active refresh knobs.
func (s *Service) Params() Params { return s.params }

// RecentTicks returns up to limit newest ticks ascending.
func (s *Service) RecentTicks(ctx context.Context, symbol string, limit int) ([]market.Tick, error) {
	ticks, err := s.reader.Recent(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent ticks %s: %w", symbol, err)
	}
	return ticks, nil
}

// Candles resamples the newest TickLimit ticks of symbol at the configured interval.
func (s *Service) Candles(ctx context.Context, symbol string) ([]market.Candle, error) {
	ticks, err := s.RecentTicks(ctx, symbol, s.params.TickLimit)
	if err != nil {
		return nil, err
	}
	return candle.Resample(ticks, s.params.Interval), nil
}

// Snapshot reads both legs once and derives every statistic from that read.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	a, err := s.leg(ctx, s.symbolA)
	if err != nil {
		return nil, err
	}
	b, err := s.leg(ctx, s.symbolB)
	if err != nil {
		return nil, err
	}
	return s.derive(a, b), nil
}

// SnapshotFromCandles runs the same chain over bars that did not come from the store, such as an
// imported CSV. Candles are sorted by start; Interval is reported as "imported".
func (s *Service) SnapshotFromCandles(a, b []market.Candle) *Snapshot {
	snap := s.derive(s.legFromCandles(s.symbolA, 0, sortedCandles(a)), s.legFromCandles(s.symbolB, 0, sortedCandles(b)))
	snap.Interval = importedInterval
	return snap
}

const importedInterval = "imported"

func (s *Service) derive(a, b Leg) *Snapshot {
	snap := &Snapshot{
		At:       time.Now().UTC(),
		Interval: s.params.Interval.Name,
		A:        a,
		B:        b,
	}
	snap.Correlation = stats.RollingCorrelation(a.Closes, b.Closes, s.params.CorrWindow)
	snap.Hedge = pairs.Estimate(b.Closes, a.Closes, s.params.MinPoints)
	snap.Spread = pairs.BuildSpread(a.Closes, b.Closes, snap.Hedge)
	snap.SpreadZ = pairs.SpreadZScore(snap.Spread, s.params.ZScoreWindow)
	snap.Stationarity = adf.Test(snap.Spread, s.params.MinPoints)

	s.log.Debug().
		Str("pair", snap.Pair()).
		Int("candles_a", len(a.Candles)).
		Int("candles_b", len(b.Candles)).
		Bool("hedge_valid", snap.Hedge.Valid).
		Str("adf", string(snap.Stationarity.Outcome)).
		Msg("analytics snapshot")
	return snap
}

func (s *Service) leg(ctx context.Context, symbol string) (Leg, error) {
	ticks, err := s.RecentTicks(ctx, symbol, s.params.TickLimit)
	if err != nil {
		return Leg{}, err
	}
	return s.legFromCandles(symbol, len(ticks), candle.Resample(ticks, s.params.Interval)), nil
}

func (s *Service) legFromCandles(symbol string, ticks int, candles []market.Candle) Leg {
	closes := stats.Closes(candles)
	return Leg{
		Symbol:  symbol,
		Ticks:   ticks,
		Candles: candles,
		Closes:  closes,
		ZScore:  stats.ZScore(closes, s.params.ZScoreWindow),
	}
}

func sortedCandles(in []market.Candle) []market.Candle {
	out := make([]market.Candle, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
