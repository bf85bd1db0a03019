// batch.go
//
// `mmbench batch`: run several models against the same secret and write
// per-model JSONL logs plus a batch summary JSON file. The batch is
// defined either by a YAML spec file (--spec) or by flags.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmbench/mmbench/internal/batch"
	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/store"
)

var batchFlags struct {
	spec string

	models string
	secret string

	colors       int
	pegs         int
	noDuplicates bool
	maxTurns     int

	runs      int
	parallel  bool
	outputDir string
	name      string
	db        string
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Benchmark several models against the same secret",
	Long: `Run the same secret through a list of models for a fair comparison.

Each model writes its own JSONL log under the output directory, and the
batch finishes with a <name>_summary.json containing per-model results.
With --parallel, models run concurrently (one worker per model); games
within a model always run sequentially.`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.spec, "spec", "", "YAML batch spec file (flags below are ignored when set)")

	f.StringVar(&batchFlags.models, "models", "", `comma-separated models, e.g. "claude,gpt-4o,deepseek/deepseek-chat"`)
	f.StringVar(&batchFlags.secret, "secret", "", `shared secret, e.g. "1,2,3,4" (required)`)

	f.IntVar(&batchFlags.colors, "colors", 6, "number of colors")
	f.IntVar(&batchFlags.pegs, "pegs", 4, "number of pegs")
	f.BoolVar(&batchFlags.noDuplicates, "no-duplicates", false, "disallow duplicate colors in the secret")
	f.IntVar(&batchFlags.maxTurns, "max-turns", 12, "turn limit per game")

	f.IntVar(&batchFlags.runs, "runs", 1, "games per model")
	f.BoolVar(&batchFlags.parallel, "parallel", false, "run models concurrently")
	f.StringVar(&batchFlags.outputDir, "output-dir", "outputs", "output directory")
	f.StringVar(&batchFlags.name, "batch-name", "", "batch name (default: batch_TIMESTAMP)")
	f.StringVar(&batchFlags.db, "db", "", "also index finished games into this SQLite file")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	sp, err := batchSpec()
	if err != nil {
		return err
	}

	r := &batch.Runner{Spec: sp}
	if batchFlags.db != "" {
		idx, err := store.OpenSQLite(batchFlags.db)
		if err != nil {
			return err
		}
		defer idx.Close()
		r.Index = idx
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}

	failed := 0
	fmt.Println()
	for _, res := range sum.Results {
		if res.Status == "success" {
			fmt.Printf("  %-30s %d/%d wins (%.1f%%), avg turns: %.1f\n",
				res.Model, res.Wins, res.Runs, res.WinRate*100, res.AvgTurnsWon)
		} else {
			failed++
			fmt.Printf("  %-30s %s: %s\n", res.Model, res.Status, res.Error)
		}
	}
	fmt.Printf("\nSummary saved to %s\n", filepath.Join(sp.OutputDir, sum.BatchName+"_summary.json"))
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(sum.Results))
	}
	return nil
}

// batchSpec assembles the Spec from --spec or from the individual flags.
func batchSpec() (batch.Spec, error) {
	if batchFlags.spec != "" {
		return batch.LoadSpec(batchFlags.spec)
	}

	if batchFlags.models == "" {
		return batch.Spec{}, fmt.Errorf("--models or --spec is required")
	}
	models := []string{}
	for _, m := range strings.Split(batchFlags.models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}

	cfg := game.Config{
		Colors:          batchFlags.colors,
		Pegs:            batchFlags.pegs,
		AllowDuplicates: !batchFlags.noDuplicates,
		MaxTurns:        batchFlags.maxTurns,
	}
	if batchFlags.secret == "" {
		return batch.Spec{}, fmt.Errorf("--secret is required so every model faces the same puzzle")
	}
	secret, err := parseSecret(batchFlags.secret, cfg)
	if err != nil {
		return batch.Spec{}, err
	}

	return batch.Spec{
		Name:      batchFlags.name,
		Models:    models,
		Secret:    secret,
		Runs:      batchFlags.runs,
		Parallel:  batchFlags.parallel,
		OutputDir: batchFlags.outputDir,
		Game:      cfg,
	}, nil
}
