// internal/batch/batch.go
//
// Batch orchestration: run the same secret against several models and
// collect a comparable summary.
// Responsibilities:
//   - Spec: the batch definition (models, secret, game config, execution
//     knobs), loadable from YAML or assembled from flags.
//   - Runner: executes every model's games in-process, one JSONL log per
//     model, sequentially or with one goroutine per model.
//   - Summary: per-model results plus batch metadata, written as JSON
//     next to the logs.
//
// Models never share mutable state: each gets its own guesser, writer,
// and result slot, so the parallel path needs no locking beyond the
// WaitGroup.

package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/player"
	"github.com/mmbench/mmbench/internal/record"
	"github.com/mmbench/mmbench/internal/session"
	"github.com/mmbench/mmbench/internal/store"
)

// Spec defines one batch. The YAML field names double as the file format
// for `mmbench batch --spec`.
type Spec struct {
	Name      string      `yaml:"name"`
	Models    []string    `yaml:"models"`
	Secret    []int       `yaml:"secret"`
	Runs      int         `yaml:"runs"`
	Parallel  bool        `yaml:"parallel"`
	OutputDir string      `yaml:"output_dir"`
	Game      game.Config `yaml:"game"`
	Session   SessionSpec `yaml:"session"`
	LLM       LLMSpec     `yaml:"llm"`
}

// SessionSpec carries the per-game execution knobs.
type SessionSpec struct {
	RetryBudget    int `yaml:"retry_budget"`
	MaxCalls       int `yaml:"max_calls"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LLMSpec carries API-mode connection settings shared by all API models.
type LLMSpec struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoadSpec reads and validates a YAML batch spec.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read spec: %w", err)
	}
	var sp Spec
	if err := yaml.Unmarshal(data, &sp); err != nil {
		return Spec{}, fmt.Errorf("parse spec %s: %w", path, err)
	}
	sp.applyDefaults()
	if err := sp.Validate(); err != nil {
		return Spec{}, err
	}
	return sp, nil
}

func (sp *Spec) applyDefaults() {
	if sp.Name == "" {
		sp.Name = "batch_" + time.Now().Format("20060102_150405")
	}
	if sp.Runs <= 0 {
		sp.Runs = 1
	}
	if sp.OutputDir == "" {
		sp.OutputDir = "outputs"
	}
	if sp.Game.Colors == 0 && sp.Game.Pegs == 0 {
		sp.Game = game.Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}
	}
}

// Validate checks the spec is runnable: at least one model, a valid game
// config, and a secret that fits it. The shared secret is mandatory so
// every model faces the same puzzle.
func (sp Spec) Validate() error {
	if len(sp.Models) == 0 {
		return fmt.Errorf("batch spec: at least one model required")
	}
	if err := sp.Game.Validate(); err != nil {
		return fmt.Errorf("batch spec: %w", err)
	}
	if len(sp.Secret) == 0 {
		return fmt.Errorf("batch spec: a shared secret is required")
	}
	if err := game.ValidateGuess(sp.Secret, sp.Game); err != nil {
		return fmt.Errorf("batch spec: secret: %w", err)
	}
	return nil
}

// DetermineMode classifies a model name: the known agent CLI tools run
// in cli mode, everything else is an API model string.
func DetermineMode(model string) (mode, id string) {
	lower := strings.ToLower(model)
	for _, tool := range player.CLITools {
		if lower == tool {
			return "cli", lower
		}
	}
	return "api", model
}

// ModelResult summarizes one model's slice of the batch.
type ModelResult struct {
	Model       string  `json:"model"`
	Mode        string  `json:"mode"`
	Status      string  `json:"status"` // "success" | "error"
	Runs        int     `json:"runs"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Errors      int     `json:"errors"`
	WinRate     float64 `json:"win_rate"`
	AvgTurnsWon float64 `json:"avg_turns_when_won"`
	Duration    float64 `json:"total_duration"`
	OutputFile  string  `json:"output_file"`
	Error       string  `json:"error,omitempty"`
}

// Summary is the batch-level report written as <name>_summary.json.
type Summary struct {
	BatchName string        `json:"batch_name"`
	Timestamp string        `json:"timestamp"`
	Config    SummaryConfig `json:"config"`
	Parallel  bool          `json:"parallel"`
	Results   []ModelResult `json:"results"`
}

// SummaryConfig echoes the shared game setup into the summary.
type SummaryConfig struct {
	Secret       []int `json:"secret"`
	Colors       int   `json:"num_colors"`
	Pegs         int   `json:"num_pegs"`
	Duplicates   bool  `json:"allow_duplicates"`
	MaxTurns     int   `json:"max_turns"`
	RunsPerModel int   `json:"runs_per_model"`
}

// GuesserFactory builds the guesser for one model. Tests swap this out;
// the default wires the LLM and CLI backends from the spec.
type GuesserFactory func(mode, id string, sp Spec) (player.Guesser, error)

// DefaultFactory builds real backends from the spec's connection settings.
func DefaultFactory(mode, id string, sp Spec) (player.Guesser, error) {
	switch mode {
	case "cli":
		return player.NewCLI(player.CLIConfig{Tool: id}, sp.Game)
	case "api":
		apiKey := sp.LLM.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("MMBENCH_API_KEY")
			if apiKey == "" {
				apiKey = os.Getenv("OPENAI_API_KEY")
			}
		}
		return player.NewLLM(player.LLMConfig{
			BaseURL:     sp.LLM.BaseURL,
			APIKey:      apiKey,
			Model:       id,
			Temperature: sp.LLM.Temperature,
			MaxTokens:   sp.LLM.MaxTokens,
		}, sp.Game), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// Runner executes a batch spec.
type Runner struct {
	Spec    Spec
	Factory GuesserFactory
	Index   store.Store // optional; finished games are indexed when set
}

// Run executes every model and writes the batch summary file. The
// returned Summary mirrors what was written. Run only errors on setup
// problems (bad spec, unwritable output dir); per-model failures are
// reported in the summary, not as an error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sp := r.Spec
	sp.applyDefaults()
	if err := sp.Validate(); err != nil {
		return Summary{}, err
	}
	factory := r.Factory
	if factory == nil {
		factory = DefaultFactory
	}
	if err := os.MkdirAll(sp.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("mkdir %s: %w", sp.OutputDir, err)
	}

	log.Info().
		Str("batch", sp.Name).
		Strs("models", sp.Models).
		Int("runs", sp.Runs).
		Bool("parallel", sp.Parallel).
		Msg("batch starting")

	results := make([]ModelResult, len(sp.Models))
	if sp.Parallel {
		var wg sync.WaitGroup
		for i, model := range sp.Models {
			wg.Add(1)
			go func(i int, model string) {
				defer wg.Done()
				results[i] = r.runModel(ctx, sp, factory, model)
			}(i, model)
		}
		wg.Wait()
	} else {
		for i, model := range sp.Models {
			results[i] = r.runModel(ctx, sp, factory, model)
		}
	}

	sum := Summary{
		BatchName: sp.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Config: SummaryConfig{
			Secret:       sp.Secret,
			Colors:       sp.Game.Colors,
			Pegs:         sp.Game.Pegs,
			Duplicates:   sp.Game.AllowDuplicates,
			MaxTurns:     sp.Game.MaxTurns,
			RunsPerModel: sp.Runs,
		},
		Parallel: sp.Parallel,
		Results:  results,
	}
	if err := writeSummary(filepath.Join(sp.OutputDir, sp.Name+"_summary.json"), sum); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// runModel plays the spec's games for one model against its own JSONL log.
func (r *Runner) runModel(ctx context.Context, sp Spec, factory GuesserFactory, model string) ModelResult {
	mode, id := DetermineMode(model)
	logFile := filepath.Join(sp.OutputDir, sp.Name+"_"+sanitizeModel(model)+".jsonl")
	res := ModelResult{Model: model, Mode: mode, Runs: sp.Runs, OutputFile: logFile}

	fail := func(err error) ModelResult {
		log.Error().Err(err).Str("model", model).Msg("model run failed")
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	gu, err := factory(mode, id, sp)
	if err != nil {
		return fail(err)
	}
	w, err := record.NewWriter(logFile)
	if err != nil {
		return fail(err)
	}
	defer w.Close()

	opts := session.Options{
		RetryBudget: sp.Session.RetryBudget,
		MaxCalls:    sp.Session.MaxCalls,
		MaxDuration: time.Duration(sp.Session.TimeoutSeconds) * time.Second,
	}

	turnsWon := 0
	for run := 0; run < sp.Runs; run++ {
		sess, err := session.New(sp.Game, gu, opts, sp.Secret, nil)
		if err != nil {
			return fail(err)
		}
		rec := sess.Run(ctx)
		if err := w.Append(rec); err != nil {
			return fail(err)
		}
		if r.Index != nil {
			if err := r.Index.Insert(ctx, store.RowFromRecord(rec, logFile)); err != nil {
				log.Warn().Err(err).Str("gameId", rec.ID).Msg("index game")
			}
		}

		res.Duration += rec.DurationSeconds
		switch rec.Outcome {
		case record.OutcomeWin:
			res.Wins++
			turnsWon += rec.TotalTurns
		case record.OutcomeLoss:
			res.Losses++
		default:
			res.Errors++
		}
		if ctx.Err() != nil {
			break
		}
	}

	res.Status = "success"
	res.WinRate = float64(res.Wins) / float64(sp.Runs)
	if res.Wins > 0 {
		res.AvgTurnsWon = float64(turnsWon) / float64(res.Wins)
	}
	log.Info().
		Str("model", model).
		Int("wins", res.Wins).
		Int("runs", sp.Runs).
		Float64("winRate", res.WinRate).
		Msg("model finished")
	return res
}

// sanitizeModel makes a model string safe for use in a file name.
func sanitizeModel(model string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(model)
}

func writeSummary(path string, sum Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
