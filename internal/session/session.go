// internal/session/session.go
//
// Session runner: drives one complete game from secret generation to a
// sealed GameRecord. Responsibilities:
//   - Construct the game (supplied or random secret, explicit RNG).
//   - Loop the turn executor until win, turn-limit loss, or fatal error.
//   - Enforce the two safety ceilings (guesser calls, wall clock) that
//     bound a misbehaving guesser independently of the turn budget.
//   - Recover panics into an error-outcome record; partial turn data is
//     always preserved — a broken game must never take the batch down.
//
// A session touches no shared state, so independent sessions may run
// concurrently from an orchestrating layer without locking.

package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/player"
	"github.com/mmbench/mmbench/internal/record"
)

// Ceiling defaults applied when Options fields are zero.
const (
	DefaultRetryBudget = 1
	DefaultMaxCalls    = 100
	DefaultMaxDuration = 5 * time.Minute
)

// Options bounds a single game.
type Options struct {
	RetryBudget int           // content retries per turn (parse/rule violations)
	MaxCalls    int           // guesser invocations per game, retries included
	MaxDuration time.Duration // wall clock per game
}

// withDefaults fills zero fields.
func (o Options) withDefaults() Options {
	if o.RetryBudget <= 0 {
		o.RetryBudget = DefaultRetryBudget
	}
	if o.MaxCalls <= 0 {
		o.MaxCalls = DefaultMaxCalls
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultMaxDuration
	}
	return o
}

// Session runs one game against one guesser.
type Session struct {
	cfg     game.Config
	guesser player.Guesser
	opts    Options
	secret  []int // optional override for reproducibility
	rng     *rand.Rand
}

// New validates the config eagerly and builds a session. A nil secret
// means a random one is generated at Run time from rng.
func New(cfg game.Config, guesser player.Guesser, opts Options, secret []int, rng *rand.Rand) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if secret != nil {
		if err := game.ValidateGuess(secret, cfg); err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
	}
	return &Session{
		cfg:     cfg,
		guesser: guesser,
		opts:    opts.withDefaults(),
		secret:  secret,
		rng:     rng,
	}, nil
}

// Run plays the game to completion and returns the sealed record.
// It never panics and never returns a half-empty record: whatever turns
// were collected before a failure are in the result.
func (s *Session) Run(ctx context.Context) record.GameRecord {
	start := time.Now()
	rec := record.GameRecord{
		ID:        uuid.NewString(),
		Config:    s.cfg,
		Guesser:   s.guesser.Info(),
		StartedAt: start.UTC().Format(time.RFC3339),
	}

	g, err := game.New(s.cfg, s.secret, s.rng)
	if err != nil {
		// New validated everything already; reaching this is a bug, but
		// it still must yield an inspectable record.
		rec.Outcome = record.OutcomeError
		rec.StopReason = record.StopFatal
		rec.Turns = append(rec.Turns, record.Turn{TurnNumber: 1, Error: err.Error()})
		rec.DurationSeconds = round2(time.Since(start).Seconds())
		return rec
	}
	rec.Secret = g.Secret()

	outcome, stop := s.loop(ctx, g, &rec, start)

	rec.Outcome = outcome
	rec.StopReason = stop
	rec.TotalTurns = g.TurnsTaken()
	rec.DurationSeconds = round2(time.Since(start).Seconds())

	log.Info().
		Str("game", rec.ID).
		Str("model", rec.Guesser.Model).
		Str("outcome", string(outcome)).
		Str("stop", string(stop)).
		Int("turns", rec.TotalTurns).
		Float64("seconds", rec.DurationSeconds).
		Msg("game finished")
	return rec
}

// loop drives turns until a terminal condition, appending turn records
// and accumulating token totals as it goes. Panics are recovered into a
// fatal-error outcome.
func (s *Session) loop(ctx context.Context, g *game.Game, rec *record.GameRecord, start time.Time) (outcome record.Outcome, stop record.StopReason) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("game", rec.ID).Msg("recovered panic in game loop")
			rec.Turns = append(rec.Turns, record.Turn{
				TurnNumber: len(rec.Turns) + 1,
				Error:      fmt.Sprintf("fatal error: %v", r),
			})
			outcome, stop = record.OutcomeError, record.StopFatal
		}
	}()

	calls := 0
	for !g.Over() {
		if err := ctx.Err(); err != nil {
			rec.Turns = append(rec.Turns, record.Turn{
				TurnNumber: len(rec.Turns) + 1,
				Error:      fmt.Sprintf("canceled: %v", err),
			})
			return record.OutcomeError, record.StopFatal
		}
		if elapsed := time.Since(start); elapsed > s.opts.MaxDuration {
			rec.Turns = append(rec.Turns, record.Turn{
				TurnNumber: len(rec.Turns) + 1,
				Error:      fmt.Sprintf("wall-clock ceiling reached after %s (limit %s)", elapsed.Round(time.Second), s.opts.MaxDuration),
			})
			return record.OutcomeLoss, record.StopTimeLimit
		}
		if calls >= s.opts.MaxCalls {
			rec.Turns = append(rec.Turns, record.Turn{
				TurnNumber: len(rec.Turns) + 1,
				Error:      fmt.Sprintf("guesser call ceiling reached (%d)", s.opts.MaxCalls),
			})
			return record.OutcomeLoss, record.StopCallLimit
		}

		turn, used, fatal := s.executeTurn(ctx, g, rec.Turns)
		calls += used
		rec.Turns = append(rec.Turns, turn)
		if turn.Tokens != nil {
			rec.TotalTokens = rec.TotalTokens.Add(*turn.Tokens)
		}

		if fatal != "" {
			return record.OutcomeError, fatal
		}
		if g.Won() {
			return record.OutcomeWin, record.StopSolved
		}
	}
	return record.OutcomeLoss, record.StopTurnLimit
}

// round2 keeps durations readable in the persisted record.
func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
