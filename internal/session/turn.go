// internal/session/turn.go
//
// Turn executor: one turn from proposal to terminal turn record.
// Retries are explicit bounded iteration, never exceptions-as-control-
// flow: each pass either yields a terminal record or increments the
// retry counter with the specific error for the next prompt.
//
// Policy (deliberate, not incidental): exhausting the retry budget
// terminates the game with outcome error. A turn that produced no valid
// guess is not silently recorded as (0,0) feedback — a benchmark must
// distinguish "deduced nothing" from "could not play".

package session

import (
	"context"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/player"
	"github.com/mmbench/mmbench/internal/record"
)

// executeTurn runs one turn attempt cycle. It returns the terminal turn
// record, the number of guesser invocations consumed, and a non-empty
// stop reason when the failure must end the game.
//
// Token usage from every attempt in the cycle is accumulated into the
// terminal record, so retries still show up in the game's token bill.
func (s *Session) executeTurn(ctx context.Context, g *game.Game, history []record.Turn) (record.Turn, int, record.StopReason) {
	turnNumber := len(history) + 1
	retry := 0
	lastErr := ""
	calls := 0
	var spent record.TokenUsage
	sawTokens := false

	for {
		prop, err := s.guesser.Propose(ctx, player.Request{
			History: history,
			Retry:   retry,
			LastErr: lastErr,
		})
		calls++
		if prop.Tokens != nil {
			spent = spent.Add(*prop.Tokens)
			sawTokens = true
		}

		turn := record.Turn{
			TurnNumber: turnNumber,
			Raw:        prop.Raw,
			Parsed:     prop.Parsed,
		}
		if sawTokens {
			usage := spent
			turn.Tokens = &usage
		}

		// Transport failure: the guesser already applied its own bounded
		// network retries, so this is fatal for the game.
		if err != nil {
			turn.Error = "guesser call failed: " + err.Error()
			return turn, calls, record.StopFatal
		}

		// Unparseable output: retry with the parse error, or give up.
		if !prop.Parsed {
			if retry < s.opts.RetryBudget {
				retry++
				lastErr = prop.Err
				continue
			}
			turn.Error = "exhausted retries: " + prop.Err
			return turn, calls, record.StopRetryExhausted
		}

		// Rule violation: same retry path, with the validator's message.
		fb, err := g.Submit(prop.Guess)
		if err != nil {
			if retry < s.opts.RetryBudget {
				retry++
				lastErr = err.Error()
				continue
			}
			turn.Error = "exhausted retries: " + err.Error()
			return turn, calls, record.StopRetryExhausted
		}

		turn.Guess = prop.Guess
		turn.Feedback = &fb
		return turn, calls, ""
	}
}
