// root.go
//
// Root command and helpers shared by the subcommands.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmbench/mmbench/internal/game"
)

// rootCmd is the mmbench entrypoint; all work happens in subcommands.
var rootCmd = &cobra.Command{
	Use:   "mmbench",
	Short: "Mastermind benchmark harness for language models",
	Long: `mmbench pits language models against the game of Mastermind.

A model proposes codes as JSON, the engine scores them with black/white
pegs, and every game is written to an append-only JSONL log that can be
indexed, ranked, and served over HTTP.

Subcommands:
  run    - benchmark a single model
  batch  - benchmark several models against the same secret
  serve  - read-only HTTP API over recorded results
  purge  - delete or archive old output files`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// parseSecret converts "1,2,3,4" into a code and validates it against
// the game config.
func parseSecret(s string, cfg game.Config) ([]int, error) {
	parts := strings.Split(s, ",")
	secret := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid secret %q: %w", s, err)
		}
		secret = append(secret, n)
	}
	if err := game.ValidateGuess(secret, cfg); err != nil {
		return nil, fmt.Errorf("invalid secret %q: %w", s, err)
	}
	return secret, nil
}
