// internal/record/record.go
//
// Record model for finished and in-flight benchmark games.
// These types are the contract consumed by reporting and the results
// index — field names are part of the persisted format and must not
// change without a migration story downstream.
//
// Lifecycle:
//   - A GameRecord is created at game start, turns are appended strictly
//     in order, and the record is sealed (outcome, timing, token totals)
//     exactly once when the game terminates. Never mutated afterwards.

package record

import (
	"time"

	"github.com/mmbench/mmbench/internal/game"
)

// Outcome classifies how a game ended.
type Outcome string

const (
	OutcomeWin   Outcome = "win"   // secret deduced
	OutcomeLoss  Outcome = "loss"  // turn budget or safety ceiling exhausted
	OutcomeError Outcome = "error" // retry exhaustion or fatal failure
)

// StopReason refines the outcome: it distinguishes a legitimate
// turn-limit loss from a safety-ceiling loss, and retry exhaustion from
// other fatal failures.
type StopReason string

const (
	StopSolved         StopReason = "solved"
	StopTurnLimit      StopReason = "turn_limit"
	StopCallLimit      StopReason = "call_limit"      // guesser-invocation ceiling
	StopTimeLimit      StopReason = "time_limit"      // wall-clock ceiling
	StopRetryExhausted StopReason = "retry_exhausted" // no valid guess within the retry budget
	StopFatal          StopReason = "fatal_error"     // transport failure or panic
)

// TokenUsage tracks prompt/completion token counts reported by a model API.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{Input: u.Input + o.Input, Output: u.Output + o.Output}
}

// Total returns input + output tokens.
func (u TokenUsage) Total() int { return u.Input + u.Output }

// GuesserInfo describes the guesser backend a game was played against.
type GuesserInfo struct {
	Mode        string  `json:"mode"`  // "api" | "cli" | "manual"
	Model       string  `json:"model"` // model string, CLI tool name, or manual label
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Turn captures one turn attempt that reached a terminal state: either a
// valid submission or exhaustion of the per-turn retry budget. Guess and
// Feedback are nil for failed turns.
type Turn struct {
	TurnNumber int            `json:"turn_number"`
	Guess      []int          `json:"guess,omitempty"`
	Feedback   *game.Feedback `json:"feedback,omitempty"`
	Raw        string         `json:"raw_response"`
	Parsed     bool           `json:"parsed"`
	Error      string         `json:"error,omitempty"`
	Tokens     *TokenUsage    `json:"tokens,omitempty"`
}

// GameRecord is the complete, replayable account of one game. One record
// is appended per line of the output log.
type GameRecord struct {
	ID              string          `json:"id"`
	Config          game.Config     `json:"config"`
	Guesser         GuesserInfo     `json:"guesser"`
	Secret          []int           `json:"secret"`
	Turns           []Turn          `json:"turns"`
	Outcome         Outcome         `json:"outcome"`
	StopReason      StopReason      `json:"stop_reason"`
	TotalTurns      int             `json:"total_turns"`
	StartedAt       string          `json:"started_at"` // RFC3339, UTC
	DurationSeconds float64         `json:"duration_seconds"`
	TotalTokens     TokenUsage      `json:"total_tokens"`
}

// Started parses the StartedAt timestamp. Zero time on malformed input.
func (r GameRecord) Started() time.Time {
	t, _ := time.Parse(time.RFC3339, r.StartedAt)
	return t
}
