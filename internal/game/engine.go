// internal/game/engine.go
//
// Core game engine for a single Mastermind session.
// Responsibilities:
//   - Create new games with a supplied or randomly generated secret.
//   - Validate guesses (length, value range, uniqueness constraint).
//   - Score guesses using the classic two-pass black/white peg algorithm.
//   - Track state transitions: in progress → won/lost by turn limit.
//
// Notes:
//   - The secret is owned by the Game and never exposed to guessers;
//     Secret() exists only for the session finalizer building the record.
//   - Randomness comes from an explicitly passed *rand.Rand so batch
//     runs can be seeded for reproducibility.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrGameOver is returned by Submit once the game has reached a terminal state.
var ErrGameOver = errors.New("game is already over")

// Game holds the state of a single Mastermind game.
type Game struct {
	cfg    Config
	secret []int
	turns  int
	won    bool
}

// New constructs a game from a validated config.
// If secret is nil, one is generated from rng per the config rules; a nil
// rng falls back to a time-seeded source. A supplied secret must itself
// satisfy the guess rules (length, range, uniqueness).
func New(cfg Config, secret []int, rng *rand.Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if secret == nil {
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		secret = generateSecret(cfg, rng)
	} else {
		if err := ValidateGuess(secret, cfg); err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
		secret = append([]int(nil), secret...)
	}
	return &Game{cfg: cfg, secret: secret}, nil
}

// generateSecret draws a uniform random code per the config rules.
func generateSecret(cfg Config, rng *rand.Rand) []int {
	if cfg.AllowDuplicates {
		secret := make([]int, cfg.Pegs)
		for i := range secret {
			secret[i] = rng.Intn(cfg.Colors)
		}
		return secret
	}
	return rng.Perm(cfg.Colors)[:cfg.Pegs]
}

// ValidateGuess checks a candidate guess against the game rules.
// Returns nil for a legal guess, otherwise an error naming the violated
// rule — the message is surfaced to the guesser on retry so it can
// self-correct.
func ValidateGuess(guess []int, cfg Config) error {
	if len(guess) != cfg.Pegs {
		return fmt.Errorf("guess must have exactly %d positions, got %d", cfg.Pegs, len(guess))
	}
	for i, v := range guess {
		if v < 0 || v >= cfg.Colors {
			return fmt.Errorf("value %d at position %d is out of range, colors are 0 to %d", v, i, cfg.Colors-1)
		}
	}
	if !cfg.AllowDuplicates {
		seen := make(map[int]bool, len(guess))
		for _, v := range guess {
			if seen[v] {
				return fmt.Errorf("color %d appears more than once, duplicates are not allowed in this game", v)
			}
			seen[v] = true
		}
	}
	return nil
}

// Score implements the standard Mastermind feedback algorithm.
//
// Pass 1:
//   - Count exact position matches (black pegs).
//   - Collect remaining (non-exact) secret colors by count.
//
// Pass 2:
//   - For each non-exact guess color: if there is remaining count for that
//     color, award a white peg and decrement the count.
//
// Counting by occurrence (not presence) gives correct multiset behavior
// with repeated colors in both secret and guess. Inputs are assumed
// equal-length and in range; validation happens upstream.
func Score(secret, guess []int) Feedback {
	var fb Feedback
	counts := make(map[int]int)

	// First pass: black pegs, plus counts for the remaining secret colors.
	for i := range secret {
		if guess[i] == secret[i] {
			fb.Black++
		} else {
			counts[secret[i]]++
		}
	}

	// Second pass: resolve white pegs for the non-exact positions.
	for i := range guess {
		if guess[i] == secret[i] {
			continue
		}
		if counts[guess[i]] > 0 {
			fb.White++
			counts[guess[i]]--
		}
	}
	return fb
}

// Submit validates and scores a guess, mutating the game state.
//
// A rule violation is reported as an error and does NOT consume a turn;
// whether to retry or give up is the caller's policy. A valid guess
// consumes a turn, and the game transitions to won when every peg is an
// exact match, or to lost when the turn budget runs out.
func (g *Game) Submit(guess []int) (Feedback, error) {
	if g.Over() {
		return Feedback{}, ErrGameOver
	}
	if err := ValidateGuess(guess, g.cfg); err != nil {
		return Feedback{}, err
	}
	fb := Score(g.secret, guess)
	g.turns++
	if fb.Black == g.cfg.Pegs {
		g.won = true
	}
	return fb, nil
}

// Over reports whether the game has reached a terminal state.
func (g *Game) Over() bool {
	if g.won {
		return true
	}
	return g.cfg.MaxTurns > 0 && g.turns >= g.cfg.MaxTurns
}

// Won reports whether the code was broken.
func (g *Game) Won() bool { return g.won }

// TurnsTaken returns the number of valid guesses submitted so far.
func (g *Game) TurnsTaken() int { return g.turns }

// Config returns the game rules.
func (g *Game) Config() Config { return g.cfg }

// Secret returns a copy of the secret code. Only the session finalizer
// should call this when assembling the game record.
func (g *Game) Secret() []int {
	return append([]int(nil), g.secret...)
}
