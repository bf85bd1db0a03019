// internal/store/store.go
//
// Results index: a queryable summary of finished games, derived from the
// JSONL log. The log stays the source of truth; the index exists so the
// results API can list games and rank models without rescanning every
// log file. Implementations: SQLite (durable) and in-memory (tests).

package store

import (
	"context"
	"errors"

	"github.com/mmbench/mmbench/internal/record"
)

// ErrNotFound is returned when a game ID is not in the index.
var ErrNotFound = errors.New("game not found")

// GameRow is one indexed game summary.
type GameRow struct {
	ID              string  `json:"id"`
	Model           string  `json:"model"`
	Mode            string  `json:"mode"`
	Outcome         string  `json:"outcome"`
	StopReason      string  `json:"stopReason"`
	TotalTurns      int     `json:"totalTurns"`
	DurationSeconds float64 `json:"durationSeconds"`
	InputTokens     int     `json:"inputTokens"`
	OutputTokens    int     `json:"outputTokens"`
	Colors          int     `json:"numColors"`
	Pegs            int     `json:"numPegs"`
	StartedAt       string  `json:"startedAt"`
	LogFile         string  `json:"logFile"` // where the full record lives
}

// ModelRank is one row of the per-model ranking.
type ModelRank struct {
	Model        string  `json:"model"`
	Mode         string  `json:"mode"`
	Games        int     `json:"games"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Errors       int     `json:"errors"`
	WinRate      float64 `json:"winRate"`
	AvgTurnsWon  float64 `json:"avgTurnsWon"` // average turns across won games only
	TotalTokens  int     `json:"totalTokens"`
}

// Store indexes game summaries and answers ranking queries.
type Store interface {
	// Insert adds or replaces a game summary row.
	Insert(ctx context.Context, row GameRow) error

	// Get returns one row by game ID, or ErrNotFound.
	Get(ctx context.Context, id string) (GameRow, error)

	// List returns the most recent rows, newest first.
	List(ctx context.Context, limit int) ([]GameRow, error)

	// Ranking aggregates per model, best win rate first.
	Ranking(ctx context.Context) ([]ModelRank, error)

	Close() error
}

// RowFromRecord flattens a sealed game record into an index row.
func RowFromRecord(rec record.GameRecord, logFile string) GameRow {
	return GameRow{
		ID:              rec.ID,
		Model:           rec.Guesser.Model,
		Mode:            rec.Guesser.Mode,
		Outcome:         string(rec.Outcome),
		StopReason:      string(rec.StopReason),
		TotalTurns:      rec.TotalTurns,
		DurationSeconds: rec.DurationSeconds,
		InputTokens:     rec.TotalTokens.Input,
		OutputTokens:    rec.TotalTokens.Output,
		Colors:          rec.Config.Colors,
		Pegs:            rec.Config.Pegs,
		StartedAt:       rec.StartedAt,
		LogFile:         logFile,
	}
}
