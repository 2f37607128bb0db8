// Package market standardizes payloads shared between ingestion, storage, and analytics layers.
package market

import (
	"strings"
	"time"
)

// Tick models a single trade print for one instrument.
type Tick struct {
	ID     int64     `json:"id,omitempty"`
	Symbol string    `json:"symbol"`
	Ts     time.Time `json:"ts"`
	Price  float64   `json:"price"`
	Qty    float64   `json:"qty"`
}

// Candle is an OHLCV bar over the half-open bucket [Start, Start+interval).
type Candle struct {
	Symbol string
	Start  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Trades int
}

// Point is one observation of a derived series. Value is NaN while undefined.
type Point struct {
	Ts    time.Time
	Value float64
}

// Series is an ascending-by-timestamp sequence of points.
type Series []Point

// Values returns the value column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Last returns the final point and false when the series is empty.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// NormalizeSymbol lowercases and trims a venue symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
