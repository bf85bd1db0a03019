// serve.go
//
// `mmbench serve`: read-only HTTP API over the results index.
// Optionally re-indexes JSONL logs into the database before serving, so
// the index can always be rebuilt from the logs.

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mmbench/mmbench/internal/record"
	"github.com/mmbench/mmbench/internal/report"
	"github.com/mmbench/mmbench/internal/store"
)

var serveFlags struct {
	db      string
	addr    string
	reindex []string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded results over HTTP",
	Long: `Expose the results index as a small read-only JSON API.

Endpoints: /health, /api/games, /api/games/{id}, /api/ranking.
Use --reindex to load JSONL logs into the database first; the index is
derived data and can be rebuilt from the logs at any time.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.db, "db", "data/results.db", "SQLite results index")
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (default :PORT env or :8080)")
	f.StringSliceVar(&serveFlags.reindex, "reindex", nil, `JSONL globs to (re)index before serving, e.g. "outputs/*.jsonl"`)

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.OpenSQLite(serveFlags.db)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(serveFlags.reindex) > 0 {
		if err := reindex(cmd.Context(), st, serveFlags.reindex); err != nil {
			return err
		}
	}

	addr := serveFlags.addr
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}
	return report.NewServer(st).Start(addr)
}

// reindex loads every record matched by the globs into the index.
func reindex(ctx context.Context, st store.Store, patterns []string) error {
	for _, p := range patterns {
		files, err := filepath.Glob(p)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, file := range files {
			recs, err := record.ReadLog(file)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if err := st.Insert(ctx, store.RowFromRecord(rec, file)); err != nil {
					return err
				}
			}
			log.Info().Str("file", file).Int("games", len(recs)).Msg("indexed")
		}
	}
	return nil
}
