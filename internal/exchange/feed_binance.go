package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"pairwatch-go/internal/market"
	"pairwatch-go/internal/metrics"
)

// binanceTrade carries every single-letter key of the trade frame. encoding/json folds case when no
// exact tag exists, so "E" and "t" need their own fields to stay out of Event and TradeTime.
type binanceTrade struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"t"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// skip reasons exported as metric labels.
const (
	skipMalformed = "malformed"
	skipNonTrade  = "non_trade"
	skipBadValue  = "bad_value"
)

func (f *Feed) streamURL(symbol string) string {
	return f.baseURL + "/" + symbol + "@trade"
}

func (f *Feed) runBinance(ctx context.Context, symbol string, h Handler) error {
	url := f.streamURL(symbol)
	backoff := f.backoff.Initial

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered, err := f.consumeBinanceStream(ctx, url, symbol, h)
		var herr *HandlerError
		if errors.As(err, &herr) {
			return herr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			backoff = f.backoff.Initial
		}
		metrics.FeedReconnects.WithLabelValues(symbol).Inc()
		f.log.Warn().Err(err).Str("symbol", symbol).Dur("backoff", backoff).Msg("binance feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = f.backoff.Next(backoff)
	}
}

// consumeBinanceStream reads one connection until it fails. delivered reports whether any trade reached h.
func (f *Feed) consumeBinanceStream(ctx context.Context, url, symbol string, h Handler) (delivered bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: f.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", symbol).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	})

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					f.log.Warn().Err(err).Str("symbol", symbol).Msg("binance ping failed")
					return
				}
			case <-connCtx.Done():
				// unblock ReadMessage on cancellation
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			return delivered, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))

		tk, reason := decodeBinanceTrade(message, symbol)
		if reason != "" {
			metrics.FeedMessagesSkipped.WithLabelValues(symbol, reason).Inc()
			f.log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("skipping feed message")
			continue
		}
		if err := deliver(ctx, h, tk); err != nil {
			return delivered, err
		}
		delivered = true
	}
}

// decodeBinanceTrade returns the tick or a non-empty skip reason.
func decodeBinanceTrade(message []byte, symbol string) (market.Tick, string) {
	var tr binanceTrade
	if err := json.Unmarshal(message, &tr); err != nil {
		return market.Tick{}, skipMalformed
	}
	if tr.Event != "trade" {
		return market.Tick{}, skipNonTrade
	}
	px, err := strconv.ParseFloat(tr.Price, 64)
	if err != nil || !(px > 0) || math.IsInf(px, 0) {
		return market.Tick{}, skipBadValue
	}
	qty, err := strconv.ParseFloat(tr.Quantity, 64)
	if err != nil || qty < 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return market.Tick{}, skipBadValue
	}
	if tr.TradeTime <= 0 {
		return market.Tick{}, skipBadValue
	}
	sym := market.NormalizeSymbol(tr.Symbol)
	if sym == "" {
		sym = symbol
	}
	return market.Tick{
		Symbol: sym,
		Ts:     time.UnixMilli(tr.TradeTime).UTC(),
		Price:  px,
		Qty:    qty,
	}, ""
}
