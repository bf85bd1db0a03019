// internal/report/stats.go
//
// Aggregate statistics over game records.
// Works directly on the JSONL log contents (no index required) and
// renders a markdown table for terminal summaries.

package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmbench/mmbench/internal/record"
)

// ModelStats aggregates one model's games.
type ModelStats struct {
	Model       string  `json:"model"`
	Mode        string  `json:"mode"`
	Games       int     `json:"games"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Errors      int     `json:"errors"`
	WinRate     float64 `json:"winRate"`
	AvgTurnsWon float64 `json:"avgTurnsWon"` // across won games only
	AvgDuration float64 `json:"avgDurationSeconds"`
	TotalTokens int     `json:"totalTokens"`
}

// Aggregate groups records by model and computes per-model stats,
// ordered by win rate descending, then average turns-to-win ascending.
func Aggregate(records []record.GameRecord) []ModelStats {
	type key struct{ model, mode string }
	agg := make(map[key]*ModelStats)
	turnsWon := make(map[key]int)
	duration := make(map[key]float64)

	for _, rec := range records {
		k := key{rec.Guesser.Model, rec.Guesser.Mode}
		st, ok := agg[k]
		if !ok {
			st = &ModelStats{Model: k.model, Mode: k.mode}
			agg[k] = st
		}
		st.Games++
		st.TotalTokens += rec.TotalTokens.Total()
		duration[k] += rec.DurationSeconds
		switch rec.Outcome {
		case record.OutcomeWin:
			st.Wins++
			turnsWon[k] += rec.TotalTurns
		case record.OutcomeLoss:
			st.Losses++
		default:
			st.Errors++
		}
	}

	out := make([]ModelStats, 0, len(agg))
	for k, st := range agg {
		st.WinRate = float64(st.Wins) / float64(st.Games)
		if st.Wins > 0 {
			st.AvgTurnsWon = float64(turnsWon[k]) / float64(st.Wins)
		}
		st.AvgDuration = duration[k] / float64(st.Games)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		if out[i].AvgTurnsWon != out[j].AvgTurnsWon {
			return out[i].AvgTurnsWon < out[j].AvgTurnsWon
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Markdown renders the stats as a markdown table.
func Markdown(stats []ModelStats) string {
	var b strings.Builder
	b.WriteString("| Model | Mode | Games | Wins | Losses | Errors | Win rate | Avg turns (won) | Avg duration | Tokens |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d | %.1f%% | %.1f | %.1fs | %d |\n",
			s.Model, s.Mode, s.Games, s.Wins, s.Losses, s.Errors,
			s.WinRate*100, s.AvgTurnsWon, s.AvgDuration, s.TotalTokens)
	}
	return b.String()
}
