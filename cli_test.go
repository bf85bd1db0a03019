package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmbench/mmbench/internal/game"
)

func TestParseSecret(t *testing.T) {
	cfg := game.Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}

	secret, err := parseSecret("1,2,3,4", cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, secret)

	secret, err = parseSecret(" 0 , 5 , 3 , 2 ", cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 3, 2}, secret)

	_, err = parseSecret("1,2,3", cfg)
	assert.Error(t, err, "wrong length")

	_, err = parseSecret("1,2,3,9", cfg)
	assert.Error(t, err, "out of range")

	_, err = parseSecret("1,2,x,4", cfg)
	assert.Error(t, err, "not a number")
}

func TestSelectFilesByAge(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.jsonl")
	recent := filepath.Join(dir, "recent.jsonl")
	require.NoError(t, os.WriteFile(old, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("{}\n"), 0o644))
	stale := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))

	files, err := selectFiles(filepath.Join(dir, "*.jsonl"), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, files)

	files, err = selectFiles(filepath.Join(dir, "*.jsonl"), 0)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestArchiveDestAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "run.jsonl"), archiveDest(dir, "outputs/run.jsonl"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.jsonl"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "run_1.jsonl"), archiveDest(dir, "outputs/run.jsonl"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_1.jsonl"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "run_2.jsonl"), archiveDest(dir, "outputs/run.jsonl"))
}
