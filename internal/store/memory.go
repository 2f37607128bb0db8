package store

import (
	"context"
	"sync"

	"pairwatch-go/internal/market"
)

// Memory keeps ticks in process memory, partitioned by symbol.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	ticks  map[string][]market.Tick
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{ticks: make(map[string][]market.Tick)}
}

// Append records a tick under the write lock.
func (m *Memory) Append(ctx context.Context, tk market.Tick) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tk, err := Validate(tk)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.nextID++
	tk.ID = m.nextID
	m.ticks[tk.Symbol] = append(m.ticks[tk.Symbol], tk)
	m.mu.Unlock()
	return nil
}

// Recent copies the symbol partition, sorts it, and returns the newest limit ticks ascending.
func (m *Memory) Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []market.Tick{}, nil
	}
	m.mu.RLock()
	src := m.ticks[market.NormalizeSymbol(symbol)]
	out := make([]market.Tick, len(src))
	copy(out, src)
	m.mu.RUnlock()

	SortTicks(out)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Len reports how many ticks are held for symbol.
func (m *Memory) Len(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ticks[market.NormalizeSymbol(symbol)])
}

// Reset clears all stored ticks.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.ticks = make(map[string][]market.Tick)
	m.mu.Unlock()
}

// Close is a no-op for the in-memory ledger.
func (m *Memory) Close() error { return nil }
