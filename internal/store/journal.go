package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"pairwatch-go/internal/market"
)

// Journal mirrors every successful append to a JSONL file for later replay.
type Journal struct {
	Store

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJournal creates/opens path in append mode and wraps inner.
func NewJournal(inner Store, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	return &Journal{Store: inner, file: file, enc: json.NewEncoder(file)}, nil
}

// Append writes to the inner store first; the journal line follows only on success.
func (j *Journal) Append(ctx context.Context, tk market.Tick) error {
	tk, err := Validate(tk)
	if err != nil {
		return err
	}
	if err := j.Store.Append(ctx, tk); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	if err := j.enc.Encode(tk); err != nil {
		return errors.Wrap(err, "write journal")
	}
	return nil
}

// Close closes the file handle and then the inner store.
func (j *Journal) Close() error {
	j.mu.Lock()
	var ferr error
	if j.file != nil {
		ferr = j.file.Close()
		j.file = nil
	}
	j.mu.Unlock()
	if err := j.Store.Close(); err != nil {
		return err
	}
	return ferr
}

// ReadJournal decodes every line of a JSONL tick journal. Malformed lines are reported with their line number.
func ReadJournal(path string) ([]market.Tick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	defer file.Close()

	var out []market.Tick
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var tk market.Tick
		if err := json.Unmarshal(scanner.Bytes(), &tk); err != nil {
			return nil, errors.Wrapf(err, "journal line %d", line)
		}
		tk.ID = 0
		out = append(out, tk)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan journal")
	}
	return out, nil
}

func unixMicroUTC(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
