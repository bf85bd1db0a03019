// run.go
//
// `mmbench run`: benchmark a single model.
// Plays N games, appends each finished record to a JSONL log, optionally
// indexes them in SQLite, and prints a per-model summary table.

package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mmbench/mmbench/internal/batch"
	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/player"
	"github.com/mmbench/mmbench/internal/record"
	"github.com/mmbench/mmbench/internal/report"
	"github.com/mmbench/mmbench/internal/session"
	"github.com/mmbench/mmbench/internal/store"
)

var runFlags struct {
	mode  string
	model string

	colors       int
	pegs         int
	noDuplicates bool
	maxTurns     int
	secret       string

	baseURL     string
	temperature float64
	maxTokens   int
	retries     int

	runs     int
	output   string
	db       string
	seed     int64
	verbose  bool
	maxCalls int
	timeout  time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Benchmark a single model",
	Long: `Play one or more Mastermind games with a single model.

The mode is picked automatically from the model name (claude/codex/gemini
run through their local CLI, anything else through an OpenAI-compatible
API), or forced with --mode. Use --mode manual to paste model replies
from a chat UI by hand.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.mode, "mode", "auto", "guesser mode: auto, api, cli, manual")
	f.StringVar(&runFlags.model, "model", "", "model name (API model string or CLI tool)")

	f.IntVar(&runFlags.colors, "colors", 6, "number of colors")
	f.IntVar(&runFlags.pegs, "pegs", 4, "number of pegs")
	f.BoolVar(&runFlags.noDuplicates, "no-duplicates", false, "disallow duplicate colors in the secret")
	f.IntVar(&runFlags.maxTurns, "max-turns", 12, "turn limit per game (0 = unlimited)")
	f.StringVar(&runFlags.secret, "secret", "", `fixed secret, e.g. "1,2,3,4" (default: random)`)

	f.StringVar(&runFlags.baseURL, "base-url", "", "OpenAI-compatible API base URL (api mode; default from MMBENCH_BASE_URL)")
	f.Float64Var(&runFlags.temperature, "temperature", 0.7, "sampling temperature (api mode)")
	f.IntVar(&runFlags.maxTokens, "max-tokens", 500, "completion token cap (api mode)")
	f.IntVar(&runFlags.retries, "retries", session.DefaultRetryBudget, "retries per turn for invalid guesses")

	f.IntVar(&runFlags.runs, "runs", 1, "number of games to play")
	f.StringVar(&runFlags.output, "output", "", "output JSONL file (default: outputs/results_TIMESTAMP.jsonl)")
	f.StringVar(&runFlags.db, "db", "", "also index finished games into this SQLite file")
	f.Int64Var(&runFlags.seed, "seed", 0, "RNG seed for secret generation (0 = time-based)")
	f.BoolVar(&runFlags.verbose, "verbose", false, "debug logging")
	f.IntVar(&runFlags.maxCalls, "max-calls", session.DefaultMaxCalls, "guesser call ceiling per game")
	f.DurationVar(&runFlags.timeout, "timeout", session.DefaultMaxDuration, "wall-clock ceiling per game")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := game.Config{
		Colors:          runFlags.colors,
		Pegs:            runFlags.pegs,
		AllowDuplicates: !runFlags.noDuplicates,
		MaxTurns:        runFlags.maxTurns,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var secret []int
	if runFlags.secret != "" {
		var err error
		if secret, err = parseSecret(runFlags.secret, cfg); err != nil {
			return err
		}
	}

	gu, err := buildGuesser(cfg)
	if err != nil {
		return err
	}

	output := runFlags.output
	if output == "" {
		output = filepath.Join("outputs", "results_"+time.Now().Format("20060102_150405")+".jsonl")
	}
	w, err := record.NewWriter(output)
	if err != nil {
		return err
	}
	defer w.Close()

	var idx store.Store
	if runFlags.db != "" {
		if idx, err = store.OpenSQLite(runFlags.db); err != nil {
			return err
		}
		defer idx.Close()
	}

	var rng *rand.Rand
	if runFlags.seed != 0 {
		rng = rand.New(rand.NewSource(runFlags.seed))
	}

	opts := session.Options{
		RetryBudget: runFlags.retries,
		MaxCalls:    runFlags.maxCalls,
		MaxDuration: runFlags.timeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records := make([]record.GameRecord, 0, runFlags.runs)
	for i := 0; i < runFlags.runs; i++ {
		sess, err := session.New(cfg, gu, opts, secret, rng)
		if err != nil {
			return err
		}
		log.Info().Int("run", i+1).Int("of", runFlags.runs).Msg("game starting")
		rec := sess.Run(ctx)
		if err := w.Append(rec); err != nil {
			return err
		}
		if idx != nil {
			if err := idx.Insert(ctx, store.RowFromRecord(rec, output)); err != nil {
				log.Warn().Err(err).Str("gameId", rec.ID).Msg("index game")
			}
		}
		records = append(records, rec)
		if ctx.Err() != nil {
			log.Warn().Msg("interrupted, stopping after current game")
			break
		}
	}

	fmt.Println()
	fmt.Print(report.Markdown(report.Aggregate(records)))
	fmt.Printf("\nResults written to %s\n", output)
	return nil
}

// buildGuesser resolves the mode/model flags into a Guesser backend.
func buildGuesser(cfg game.Config) (player.Guesser, error) {
	mode := runFlags.mode
	model := runFlags.model
	if mode == "auto" {
		if model == "" {
			return nil, fmt.Errorf("--model is required (or use --mode manual)")
		}
		mode, model = batch.DetermineMode(model)
	}

	switch mode {
	case "cli":
		return player.NewCLI(player.CLIConfig{Tool: model}, cfg)
	case "api":
		if model == "" {
			return nil, fmt.Errorf("--model is required in api mode")
		}
		baseURL := runFlags.baseURL
		if baseURL == "" {
			baseURL = os.Getenv("MMBENCH_BASE_URL")
		}
		return player.NewLLM(player.LLMConfig{
			BaseURL:     baseURL,
			APIKey:      getEnv("MMBENCH_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Model:       model,
			Temperature: runFlags.temperature,
			MaxTokens:   runFlags.maxTokens,
		}, cfg), nil
	case "manual":
		label := model
		if label == "" {
			label = "web-ui"
		}
		return player.NewManual(label, cfg, os.Stdin, os.Stdout), nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want auto, api, cli, or manual)", mode)
	}
}
