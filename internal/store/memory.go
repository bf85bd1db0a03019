// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used in tests and for one-off runs where no durable index is wanted.
//
// Characteristics:
//   - Rows keyed by game ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process exits.

package store

import (
	"context"
	"sort"
	"sync"
)

// memory is a map-based Store implementation.
type memory struct {
	mu   sync.RWMutex
	rows map[string]GameRow
}

// NewMemory constructs an in-memory Store.
func NewMemory() Store {
	return &memory{rows: make(map[string]GameRow)}
}

// Insert adds or replaces the row in the map.
func (m *memory) Insert(ctx context.Context, row GameRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	return nil
}

// Get looks up a row by game ID.
func (m *memory) Get(ctx context.Context, id string) (GameRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rows[id]; ok {
		return r, nil
	}
	return GameRow{}, ErrNotFound
}

// List returns the most recent rows, newest first.
func (m *memory) List(ctx context.Context, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]GameRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ranking aggregates per model, best win rate first, fewest average
// turns-to-win breaking ties.
func (m *memory) Ranking(ctx context.Context) ([]ModelRank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct{ model, mode string }
	agg := make(map[key]*ModelRank)
	turnsWon := make(map[key]int)

	for _, r := range m.rows {
		k := key{r.Model, r.Mode}
		rank, ok := agg[k]
		if !ok {
			rank = &ModelRank{Model: r.Model, Mode: r.Mode}
			agg[k] = rank
		}
		rank.Games++
		rank.TotalTokens += r.InputTokens + r.OutputTokens
		switch r.Outcome {
		case "win":
			rank.Wins++
			turnsWon[k] += r.TotalTurns
		case "loss":
			rank.Losses++
		case "error":
			rank.Errors++
		}
	}

	out := make([]ModelRank, 0, len(agg))
	for k, rank := range agg {
		if rank.Wins > 0 {
			rank.AvgTurnsWon = float64(turnsWon[k]) / float64(rank.Wins)
		}
		rank.WinRate = float64(rank.Wins) / float64(rank.Games)
		out = append(out, *rank)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].AvgTurnsWon < out[j].AvgTurnsWon
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *memory) Close() error { return nil }
