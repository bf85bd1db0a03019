// internal/player/prompt.go
//
// Prompt construction shared by every guesser backend.
// The system prompt states the rules derived from the game config; the
// user prompt renders the turn history (guesses, feedback, or error
// markers) and, on retry, the specific error from the failed attempt so
// the model can self-correct.

package player

import (
	"fmt"
	"strings"

	"github.com/mmbench/mmbench/internal/game"
)

// SystemPrompt renders the game rules and the required response format.
func SystemPrompt(cfg game.Config) string {
	duplicates := "Duplicate colors are allowed."
	if !cfg.AllowDuplicates {
		duplicates = "All colors must be unique."
	}
	turns := "You have unlimited guesses."
	if cfg.MaxTurns > 0 {
		turns = fmt.Sprintf("You have a maximum of %d guesses.", cfg.MaxTurns)
	}

	return fmt.Sprintf(`You are playing Mastermind.

RULES:
- The secret code has %d positions
- Each position contains a color numbered from 0 to %d
- %s
- %s

FEEDBACK:
- Black pegs: correct color in correct position
- White pegs: correct color in wrong position
- You are NOT told which positions are correct

RESPONSE FORMAT:
Respond with ONLY a JSON object containing your guess.
{"guess": [0, 1, 2, 3]}

If you want to explain your reasoning, put the JSON object at the very end of your response.`,
		cfg.Pegs, cfg.Colors-1, duplicates, turns)
}

// UserPrompt renders the history and the instruction for the next guess.
func UserPrompt(req Request) string {
	if len(req.History) == 0 && req.Retry == 0 {
		return "Make your first guess."
	}

	var b strings.Builder
	if len(req.History) > 0 {
		b.WriteString("Previous guesses:\n\n")
		for _, turn := range req.History {
			fmt.Fprintf(&b, "Turn %d:\n", turn.TurnNumber)
			if turn.Guess != nil {
				fmt.Fprintf(&b, "Guess: %s\n", formatGuess(turn.Guess))
			}
			switch {
			case turn.Feedback != nil:
				fmt.Fprintf(&b, "Feedback: %d black, %d white\n", turn.Feedback.Black, turn.Feedback.White)
			case turn.Error != "":
				fmt.Fprintf(&b, "Error: %s\n", turn.Error)
			}
			b.WriteString("\n")
		}
	}

	if req.Retry > 0 {
		if req.LastErr != "" {
			fmt.Fprintf(&b, "Your last guess was invalid: %s\n", req.LastErr)
		} else {
			b.WriteString("Your last guess was invalid.\n")
		}
		b.WriteString("Provide a valid guess in the correct JSON format.")
	} else {
		b.WriteString("Provide your next guess.")
	}
	return b.String()
}

// formatGuess renders a guess like [1, 2, 3, 4].
func formatGuess(guess []int) string {
	parts := make([]string, len(guess))
	for i, v := range guess {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
