// Package candle resamples tick series into epoch-aligned OHLCV bars.
package candle

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Interval is a named, fixed bucket width.
type Interval struct {
	Name     string
	Duration time.Duration
}

// Supported intervals.
var (
	Interval1s   = Interval{Name: "1s", Duration: time.Second}
	Interval1min = Interval{Name: "1min", Duration: time.Minute}
	Interval5min = Interval{Name: "5min", Duration: 5 * time.Minute}
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Interval{}
)

func init() {
	for _, iv := range []Interval{Interval1s, Interval1min, Interval5min} {
		registry[iv.Name] = iv
	}
	registry["1m"] = Interval1min
	registry["5m"] = Interval5min
}

// Register adds or replaces a named interval.
func Register(iv Interval) error {
	if iv.Name == "" || iv.Duration <= 0 {
		return fmt.Errorf("invalid interval %q (%s)", iv.Name, iv.Duration)
	}
	registryMu.Lock()
	registry[strings.ToLower(iv.Name)] = iv
	registryMu.Unlock()
	return nil
}

// GetInterval returns an interval by name.
func GetInterval(name string) (Interval, error) {
	registryMu.RLock()
	iv, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return Interval{}, fmt.Errorf("unsupported interval: %s", name)
	}
	return iv, nil
}

// Names lists registered interval names (aliases included), sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Bucket returns floor(ts / d) * d measured from the Unix epoch, in UTC.
func Bucket(ts time.Time, d time.Duration) time.Time {
	ns := ts.UnixNano()
	step := int64(d)
	rem := ns % step
	if rem < 0 {
		rem += step
	}
	return time.Unix(0, ns-rem).UTC()
}

// BucketStart is Bucket for this interval.
func (iv Interval) BucketStart(ts time.Time) time.Time {
	return Bucket(ts, iv.Duration)
}
