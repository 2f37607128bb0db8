package candle

import (
	"strings"
	"testing"
	"time"

	"pairwatch-go/internal/market"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestResampleTwoBuckets(t *testing.T) {
	ticks := []market.Tick{
		{Symbol: "btcusdt", Ts: t0, Price: 100, Qty: 1},
		{Symbol: "btcusdt", Ts: t0.Add(500 * time.Millisecond), Price: 101, Qty: 2},
		{Symbol: "btcusdt", Ts: t0.Add(time.Second), Price: 99, Qty: 1},
	}
	got := Resample(ticks, Interval1s)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	first, second := got[0], got[1]
	if !first.Start.Equal(t0) || first.Open != 100 || first.High != 101 || first.Low != 100 || first.Close != 101 || first.Volume != 3 {
		t.Fatalf("unexpected first candle %+v", first)
	}
	if !second.Start.Equal(t0.Add(time.Second)) || second.Open != 99 || second.High != 99 || second.Low != 99 || second.Close != 99 || second.Volume != 1 {
		t.Fatalf("unexpected second candle %+v", second)
	}
}

func TestResampleSortsUnorderedInput(t *testing.T) {
	ticks := []market.Tick{
		{Ts: t0.Add(30 * time.Second), Price: 3, Qty: 1},
		{Ts: t0.Add(10 * time.Second), Price: 1, Qty: 1},
		{Ts: t0.Add(20 * time.Second), Price: 2, Qty: 1},
	}
	got := Resample(ticks, Interval1min)
	if len(got) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(got))
	}
	if got[0].Open != 1 || got[0].Close != 3 || got[0].Trades != 3 {
		t.Fatalf("unexpected candle %+v", got[0])
	}
	if ticks[0].Price != 3 {
		t.Fatalf("caller slice must not be reordered")
	}
}

func TestResampleDropsEmptyBuckets(t *testing.T) {
	ticks := []market.Tick{
		{Ts: t0, Price: 1, Qty: 1},
		{Ts: t0.Add(3 * time.Minute), Price: 2, Qty: 1},
	}
	got := Resample(ticks, Interval1min)
	if len(got) != 2 {
		t.Fatalf("expected 2 candles with no forward fill, got %d", len(got))
	}
	if !got[1].Start.Equal(t0.Add(3 * time.Minute)) {
		t.Fatalf("unexpected second bucket %s", got[1].Start)
	}
}

func TestResampleDuplicateTimestampsKeepArrivalOrder(t *testing.T) {
	ticks := []market.Tick{
		{Ts: t0.Add(time.Second), Price: 5, Qty: 1},
		{Ts: t0, Price: 1, Qty: 1},
		{Ts: t0, Price: 2, Qty: 1},
	}
	got := Resample(ticks, Interval1min)
	if got[0].Open != 1 || got[0].Close != 5 || got[0].Volume != 3 {
		t.Fatalf("unexpected candle %+v", got[0])
	}
}

func TestResampleEmpty(t *testing.T) {
	if got := Resample(nil, Interval1s); len(got) != 0 {
		t.Fatalf("expected empty output")
	}
}

func TestResampleIdempotentOnCloses(t *testing.T) {
	var ticks []market.Tick
	for i := 0; i < 600; i++ {
		ticks = append(ticks, market.Tick{Ts: t0.Add(time.Duration(i*700) * time.Millisecond), Price: float64(100 + i%17), Qty: 1})
	}
	candles := Resample(ticks, Interval5min)

	var closes []market.Tick
	for _, c := range candles {
		closes = append(closes, market.Tick{Ts: c.Start, Price: c.Close, Qty: c.Volume})
	}
	again := Resample(closes, Interval5min)
	if len(again) != len(candles) {
		t.Fatalf("expected %d candles, got %d", len(candles), len(again))
	}
	for i := range again {
		if again[i].Close != candles[i].Close || !again[i].Start.Equal(candles[i].Start) {
			t.Fatalf("bucket %d differs: %+v vs %+v", i, again[i], candles[i])
		}
	}
}

func TestBucketEpochAligned(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 7, 42, 123, time.UTC)
	if got := Bucket(ts, 5*time.Minute); !got.Equal(time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket %s", got)
	}
	before := time.Unix(-1, 0)
	if got := Bucket(before, time.Minute); got.Unix() != -60 {
		t.Fatalf("expected floor for pre-epoch time, got %d", got.Unix())
	}
	if got := Bucket(ts, 7*time.Second); got.Unix()%7 != 0 {
		t.Fatalf("expected epoch alignment for 7s buckets, got %d", got.Unix())
	}
}

func TestIntervalRegistry(t *testing.T) {
	for name, want := range map[string]time.Duration{"1s": time.Second, "1min": time.Minute, "1m": time.Minute, "5MIN": 5 * time.Minute} {
		iv, err := GetInterval(name)
		if err != nil {
			t.Fatalf("GetInterval(%s) error: %v", name, err)
		}
		if iv.Duration != want {
			t.Fatalf("GetInterval(%s)=%s want %s", name, iv.Duration, want)
		}
	}
	if _, err := GetInterval("3h"); err == nil {
		t.Fatalf("expected unsupported interval error")
	}
	if err := Register(Interval{Name: "15min", Duration: 15 * time.Minute}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := ResampleNamed([]market.Tick{{Ts: t0, Price: 1}}, "15min"); err != nil {
		t.Fatalf("ResampleNamed error: %v", err)
	}
	if err := Register(Interval{Name: "bad"}); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}

func TestReadCSVAliases(t *testing.T) {
	body := "Time,Price,Qty\n2024-03-01T10:00:00Z,100.5,3\n1709287260000,101,0\n"
	got, err := ReadCSV(strings.NewReader(body), "BTCUSDT")
	if err != nil {
		t.Fatalf("ReadCSV error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if got[0].Open != 100.5 || got[0].High != 100.5 || got[0].Low != 100.5 || got[0].Volume != 3 || got[0].Symbol != "btcusdt" {
		t.Fatalf("unexpected first candle %+v", got[0])
	}
	if !got[1].Start.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected epoch-ms timestamp %s", got[1].Start)
	}
}

func TestReadCSVMissingClose(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("ts,open\n1,2\n"), "x"); err == nil {
		t.Fatalf("expected missing close error")
	}
}

func TestReadCSVFullOHLCV(t *testing.T) {
	body := "Date,Open,High,Low,Close,Volume\n2024-03-01 10:00:00,1,4,0.5,2,10\n"
	got, err := ReadCSV(strings.NewReader(body), "ethusdt")
	if err != nil {
		t.Fatalf("ReadCSV error: %v", err)
	}
	c := got[0]
	if c.Open != 1 || c.High != 4 || c.Low != 0.5 || c.Close != 2 || c.Volume != 10 {
		t.Fatalf("unexpected candle %+v", c)
	}
}
