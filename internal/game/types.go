// internal/game/types.go
//
// Core type definitions for the Mastermind game engine.
// Defines:
//   - Config: rules for a single game (alphabet size, code length, duplicates, turn budget).
//   - Feedback: black/white peg counts returned for a scored guess.

package game

import "fmt"

// Config holds the immutable rules of a single Mastermind game.
//
// Turn accounting: only guesses accepted by Submit consume a turn of
// MaxTurns. Malformed or rule-violating attempts are handled by the
// caller's retry policy and never count against the turn budget.
type Config struct {
	Colors          int  `json:"num_colors" yaml:"colors"`                 // size of the color alphabet, values 0..Colors-1
	Pegs            int  `json:"num_pegs" yaml:"pegs"`                     // length of the secret code
	AllowDuplicates bool `json:"allow_duplicates" yaml:"allow_duplicates"` // may the secret repeat colors
	MaxTurns        int  `json:"max_turns" yaml:"max_turns"`               // turn budget; 0 = unlimited (bounded by session ceilings)
}

// Validate rejects impossible or nonsensical rule sets.
// Called eagerly at game construction so config errors never reach the turn loop.
func (c Config) Validate() error {
	if c.Colors < 2 {
		return fmt.Errorf("config: need at least 2 colors, got %d", c.Colors)
	}
	if c.Pegs < 1 {
		return fmt.Errorf("config: need at least 1 peg, got %d", c.Pegs)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("config: max turns must not be negative, got %d", c.MaxTurns)
	}
	if !c.AllowDuplicates && c.Colors < c.Pegs {
		return fmt.Errorf("config: %d unique colors cannot fill %d pegs without duplicates", c.Colors, c.Pegs)
	}
	return nil
}

// Feedback is the scored result of one guess.
// Black counts exact position matches; White counts additional color
// matches after exact matches are removed (multiset semantics).
// Invariant: Black + White <= Pegs. Black == Pegs means the code was broken.
type Feedback struct {
	Black int `json:"black"`
	White int `json:"white"`
}
