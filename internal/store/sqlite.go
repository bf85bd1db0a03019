// internal/store/sqlite.go
//
// SQLite-backed results index.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Insert/list/ranking queries over the games table.
//
// The index is derived data: it can always be rebuilt from the JSONL
// logs, so INSERT OR REPLACE keyed on game ID makes re-indexing safe.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order; each entry runs at most once.
var migrations = []struct {
	name string
	ddl  string
}{
	{
		name: "0001_games",
		ddl: `CREATE TABLE IF NOT EXISTS games (
			id               TEXT PRIMARY KEY,
			model            TEXT NOT NULL,
			mode             TEXT NOT NULL,
			outcome          TEXT NOT NULL,
			stop_reason      TEXT NOT NULL,
			total_turns      INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			input_tokens     INTEGER NOT NULL,
			output_tokens    INTEGER NOT NULL,
			num_colors       INTEGER NOT NULL,
			num_pegs         INTEGER NOT NULL,
			started_at       TEXT NOT NULL,
			log_file         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_model ON games(model);
		CREATE INDEX IF NOT EXISTS idx_games_started ON games(started_at);`,
	},
}

// SQLite implements Store on a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the index database and applies
// migrations.
//
//   - Ensures the parent directory exists for relative paths (e.g. ./data/results.db).
//   - Configures busy timeout and WAL journaling mode.
//   - Enforces foreign keys.
func OpenSQLite(dsn string) (*SQLite, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies pending migrations inside transactions, recording each
// applied name in the _migrations table.
func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := s.db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.name).Scan(&done)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}

// Insert adds or replaces a game summary row.
func (s *SQLite) Insert(ctx context.Context, row GameRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO games
			(id, model, mode, outcome, stop_reason, total_turns, duration_seconds,
			 input_tokens, output_tokens, num_colors, num_pegs, started_at, log_file)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID, row.Model, row.Mode, row.Outcome, row.StopReason, row.TotalTurns,
		row.DurationSeconds, row.InputTokens, row.OutputTokens, row.Colors, row.Pegs,
		row.StartedAt, row.LogFile,
	)
	return err
}

// Get returns one row by game ID.
func (s *SQLite) Get(ctx context.Context, id string) (GameRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model, mode, outcome, stop_reason, total_turns, duration_seconds,
		       input_tokens, output_tokens, num_colors, num_pegs, started_at, log_file
		FROM games WHERE id=?`, id)
	var r GameRow
	err := row.Scan(&r.ID, &r.Model, &r.Mode, &r.Outcome, &r.StopReason, &r.TotalTurns,
		&r.DurationSeconds, &r.InputTokens, &r.OutputTokens, &r.Colors, &r.Pegs,
		&r.StartedAt, &r.LogFile)
	if err == sql.ErrNoRows {
		return GameRow{}, ErrNotFound
	}
	return r, err
}

// List returns the most recent rows, newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, mode, outcome, stop_reason, total_turns, duration_seconds,
		       input_tokens, output_tokens, num_colors, num_pegs, started_at, log_file
		FROM games ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameRow, 0, limit)
	for rows.Next() {
		var r GameRow
		if err := rows.Scan(&r.ID, &r.Model, &r.Mode, &r.Outcome, &r.StopReason, &r.TotalTurns,
			&r.DurationSeconds, &r.InputTokens, &r.OutputTokens, &r.Colors, &r.Pegs,
			&r.StartedAt, &r.LogFile); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ranking aggregates per model: best win rate first, fewest average
// turns-to-win as the tie breaker.
func (s *SQLite) Ranking(ctx context.Context) ([]ModelRank, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, mode,
		       COUNT(*)                                          AS games,
		       SUM(outcome = 'win')                              AS wins,
		       SUM(outcome = 'loss')                             AS losses,
		       SUM(outcome = 'error')                            AS errors,
		       COALESCE(AVG(CASE WHEN outcome = 'win' THEN total_turns END), 0) AS avg_turns_won,
		       SUM(input_tokens + output_tokens)                 AS total_tokens
		FROM games
		GROUP BY model, mode
		ORDER BY CAST(SUM(outcome = 'win') AS REAL) / COUNT(*) DESC, avg_turns_won ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModelRank
	for rows.Next() {
		var r ModelRank
		if err := rows.Scan(&r.Model, &r.Mode, &r.Games, &r.Wins, &r.Losses, &r.Errors,
			&r.AvgTurnsWon, &r.TotalTokens); err != nil {
			return nil, err
		}
		if r.Games > 0 {
			r.WinRate = float64(r.Wins) / float64(r.Games)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
