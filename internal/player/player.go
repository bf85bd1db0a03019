// internal/player/player.go
//
// The Guesser capability: the single boundary the game core consumes.
// A guesser is anything that can propose a Mastermind guess given the
// turn history — a hosted model API, a local agent CLI, or a human
// pasting replies from a web UI. The core makes no assumption beyond
// one request/response per call.

package player

import (
	"context"

	"github.com/mmbench/mmbench/internal/record"
)

// Request carries everything a guesser needs to produce a proposal.
type Request struct {
	History []record.Turn // prior terminal turns, in order
	Retry   int           // 0 on the first attempt of a turn
	LastErr string        // parse/validation error from the previous attempt, "" on first
}

// Proposal is the outcome of one guesser invocation. Parsed=false means
// the raw output did not decode into a guess; Err says why so the next
// prompt can ask the model to self-correct.
type Proposal struct {
	Guess  []int
	Raw    string
	Parsed bool
	Err    string
	Tokens *record.TokenUsage // nil when the backend reports no usage
}

// Guesser proposes guesses. A non-nil error from Propose is a transport
// failure (network, subprocess, user abort) after the backend's own
// bounded retries — the session treats it as fatal for the current game.
// Content-level failures (unparseable output) are reported in the
// Proposal with a nil error so the turn executor can apply its retry
// policy.
type Guesser interface {
	Propose(ctx context.Context, req Request) (Proposal, error)
	Info() record.GuesserInfo
}
