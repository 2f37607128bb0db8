package candle

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pairwatch-go/internal/market"
)

// Canonical candle fields accepted at the import boundary.
const (
	FieldTimestamp = "timestamp"
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldVolume    = "volume"
)

// ColumnMap maps lowercase header aliases to canonical fields.
var ColumnMap = map[string]string{
	"timestamp": FieldTimestamp, "ts": FieldTimestamp, "time": FieldTimestamp, "date": FieldTimestamp, "datetime": FieldTimestamp,
	"open": FieldOpen, "o": FieldOpen,
	"high": FieldHigh, "h": FieldHigh,
	"low": FieldLow, "l": FieldLow,
	"close": FieldClose, "c": FieldClose, "price": FieldClose,
	"volume": FieldVolume, "v": FieldVolume, "qty": FieldVolume,
}

// NormalizeHeader resolves each header cell through ColumnMap and returns canonical field -> column index.
// The first column claiming a field wins. Timestamp and close are required.
func NormalizeHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		field, ok := ColumnMap[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, seen := idx[field]; !seen {
			idx[field] = i
		}
	}
	for _, required := range []string{FieldTimestamp, FieldClose} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return idx, nil
}

// ReadCSV decodes externally supplied bars. Missing open/high/low default to close, missing volume to 0.
// Timestamps may be RFC3339 or integer epoch milliseconds.
func ReadCSV(r io.Reader, symbol string) ([]market.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := NormalizeHeader(header)
	if err != nil {
		return nil, err
	}

	symbol = market.NormalizeSymbol(symbol)
	var out []market.Candle
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c.Symbol = symbol
		out = append(out, c)
	}
	return out, nil
}

func parseRecord(rec []string, idx map[string]int) (market.Candle, error) {
	var c market.Candle
	ts, err := parseTimestamp(rec[idx[FieldTimestamp]])
	if err != nil {
		return c, err
	}
	c.Start = ts
	if c.Close, err = parseField(rec, idx, FieldClose); err != nil {
		return c, err
	}
	c.Open, c.High, c.Low = c.Close, c.Close, c.Close
	for field, dst := range map[string]*float64{FieldOpen: &c.Open, FieldHigh: &c.High, FieldLow: &c.Low, FieldVolume: &c.Volume} {
		if _, ok := idx[field]; !ok {
			continue
		}
		if *dst, err = parseField(rec, idx, field); err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseField(rec []string, idx map[string]int, field string) (float64, error) {
	raw := strings.TrimSpace(rec[idx[field]])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, raw, err)
	}
	return v, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
