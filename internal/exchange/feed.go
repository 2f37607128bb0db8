// Package exchange hosts connectors for trade feeds.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/market"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance USD-M futures websockets.
	ProviderBinance = "binance"
)

// Handler receives every decoded trade. A non-nil error stops the stream and is returned by Stream.
type Handler func(ctx context.Context, tk market.Tick) error

// HandlerError marks a failure raised by the Handler rather than the transport.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string { return fmt.Sprintf("tick handler: %v", e.Err) }
func (e *HandlerError) Unwrap() error { return e.Err }

// Backoff is an exponential reconnect schedule.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// Next grows d by Factor, capped at Max.
func (b Backoff) Next(d time.Duration) time.Duration {
	return time.Duration(math.Min(float64(b.Max), float64(d)*b.Factor))
}

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider         string
	baseURL          string
	log              zerolog.Logger
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	pingInterval     time.Duration
	backoff          Backoff
	stubInterval     time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultBinanceBaseURL   = "wss://fstream.binance.com/ws"
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadTimeout      = 30 * time.Second
	defaultPingInterval     = 15 * time.Second
	defaultStubInterval     = 200 * time.Millisecond
)

// DefaultBackoff starts at 1s and grows by 1.8x up to 30s.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second, Factor: 1.8}

// WithBaseURL overrides the websocket endpoint root; the symbol stream name is appended.
func WithBaseURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithTimeouts overrides handshake, read, and ping cadence. Non-positive values keep defaults.
func WithTimeouts(handshake, read, ping time.Duration) Option {
	return func(f *Feed) {
		if handshake > 0 {
			f.handshakeTimeout = handshake
		}
		if read > 0 {
			f.readTimeout = read
		}
		if ping > 0 {
			f.pingInterval = ping
		}
	}
}

// WithBackoff overrides the reconnect schedule.
func WithBackoff(b Backoff) Option {
	return func(f *Feed) {
		if b.Initial > 0 {
			f.backoff.Initial = b.Initial
		}
		if b.Max > 0 {
			f.backoff.Max = b.Max
		}
		if b.Factor > 1 {
			f.backoff.Factor = b.Factor
		}
	}
}

// WithStubInterval sets the synthetic tick cadence.
func WithStubInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:         strings.ToLower(provider),
		baseURL:          defaultBinanceBaseURL,
		log:              log,
		handshakeTimeout: defaultHandshakeTimeout,
		readTimeout:      defaultReadTimeout,
		pingInterval:     defaultPingInterval,
		backoff:          DefaultBackoff,
		stubInterval:     defaultStubInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.backoff.Max < f.backoff.Initial {
		f.backoff.Max = f.backoff.Initial
	}
	return f
}

// Provider reports the configured provider name.
func (f *Feed) Provider() string { return f.provider }

// Stream delivers trades for one symbol to h until ctx is canceled or h fails.
// Transport failures are retried with backoff and never returned.
func (f *Feed) Stream(ctx context.Context, symbol string, h Handler) error {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return errors.New("stream requires a symbol")
	}
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, symbol, h)
	case ProviderStub:
		return f.runStub(ctx, symbol, h)
	default:
		return fmt.Errorf("unknown feed provider %q", f.provider)
	}
}

func deliver(ctx context.Context, h Handler, tk market.Tick) error {
	if err := h(ctx, tk); err != nil {
		return &HandlerError{Err: err}
	}
	return nil
}
