package analytics

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

var summaryKeys = []string{"zscore_a", "zscore_b", "correlation", "hedge_ratio", "spread", "spread_zscore", "adf_statistic", "adf_pvalue"}

// WriteSummary renders the headline values as plain text. Undefined values print as "waiting for data".
func (s *Snapshot) WriteSummary(w io.Writer) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	printf("--- %s @ %s (%s bars) ---\n", s.Pair(), s.At.Format(time.RFC3339), s.Interval)
	printf("Candles: %s=%d %s=%d\n", s.A.Symbol, len(s.A.Candles), s.B.Symbol, len(s.B.Candles))
	latest := s.Latest()
	for _, k := range summaryKeys {
		printf("%-14s %s\n", k, formatValue(latest[k]))
	}
	if !s.Hedge.Valid {
		printf("hedge ratio unavailable: %s (%d paired points)\n", s.Hedge.Reason, s.Hedge.N)
	}
	if s.Stationarity.Valid() {
		cv := s.Stationarity.CriticalValues
		printf("critical values 1%%=%.3f 5%%=%.3f 10%%=%.3f | stationary at 5%%: %v\n", cv.OnePct, cv.FivePct, cv.TenPct, s.Stationarity.Stationary)
	} else {
		printf("stationarity test: %s\n", s.Stationarity.Outcome)
	}
	return err
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "waiting for data"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
