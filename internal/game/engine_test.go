package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"classic", Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}, false},
		{"unlimited turns", Config{Colors: 6, Pegs: 4, AllowDuplicates: true}, false},
		{"too few colors", Config{Colors: 1, Pegs: 4}, true},
		{"zero pegs", Config{Colors: 6, Pegs: 0}, true},
		{"negative max turns", Config{Colors: 6, Pegs: 4, MaxTurns: -1}, true},
		{"no duplicates needs enough colors", Config{Colors: 3, Pegs: 4, AllowDuplicates: false}, true},
		{"no duplicates exact fit", Config{Colors: 4, Pegs: 4, AllowDuplicates: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		secret []int
		guess  []int
		want   Feedback
	}{
		{"all exact", []int{1, 2, 3, 4}, []int{1, 2, 3, 4}, Feedback{Black: 4, White: 0}},
		{"no matches", []int{0, 0, 0, 0}, []int{1, 1, 1, 1}, Feedback{Black: 0, White: 0}},
		{"classic worked example", []int{2, 4, 1, 5}, []int{4, 2, 1, 5}, Feedback{Black: 2, White: 2}},
		{"multiset duplicates", []int{1, 1, 2, 3}, []int{1, 1, 1, 4}, Feedback{Black: 2, White: 0}},
		{"duplicate in guess single in secret", []int{1, 2, 3, 4}, []int{2, 2, 2, 2}, Feedback{Black: 1, White: 0}},
		{"all colors shifted", []int{1, 2, 3, 4}, []int{4, 3, 2, 1}, Feedback{Black: 0, White: 4}},
		{"single peg", []int{3}, []int{3}, Feedback{Black: 1, White: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.secret, tt.guess))
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	secret := []int{2, 4, 1, 5}
	guess := []int{4, 2, 1, 5}
	first := Score(secret, guess)
	second := Score(secret, guess)
	assert.Equal(t, first, second)
	// Inputs must not be mutated.
	assert.Equal(t, []int{2, 4, 1, 5}, secret)
	assert.Equal(t, []int{4, 2, 1, 5}, guess)
}

func TestScoreBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := Config{Colors: 6, Pegs: 4, AllowDuplicates: true}
	for i := 0; i < 500; i++ {
		secret := generateSecret(cfg, rng)
		guess := generateSecret(cfg, rng)
		fb := Score(secret, guess)
		assert.LessOrEqual(t, fb.Black+fb.White, cfg.Pegs)
		assert.GreaterOrEqual(t, fb.Black, 0)
		assert.GreaterOrEqual(t, fb.White, 0)
	}
}

func TestScoreIdenticalSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	cfg := Config{Colors: 8, Pegs: 5, AllowDuplicates: true}
	for i := 0; i < 100; i++ {
		s := generateSecret(cfg, rng)
		assert.Equal(t, Feedback{Black: len(s), White: 0}, Score(s, s))
	}
}

func TestValidateGuess(t *testing.T) {
	cfg := Config{Colors: 6, Pegs: 4, AllowDuplicates: true}
	noDup := Config{Colors: 6, Pegs: 4, AllowDuplicates: false}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateGuess([]int{0, 1, 2, 3}, cfg))
	})
	t.Run("wrong length", func(t *testing.T) {
		err := ValidateGuess([]int{0, 1, 2}, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly 4 positions")
	})
	t.Run("out of range high", func(t *testing.T) {
		err := ValidateGuess([]int{0, 1, 2, 6}, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})
	t.Run("out of range negative", func(t *testing.T) {
		assert.Error(t, ValidateGuess([]int{0, 1, 2, -1}, cfg))
	})
	t.Run("duplicates allowed", func(t *testing.T) {
		assert.NoError(t, ValidateGuess([]int{1, 1, 2, 3}, cfg))
	})
	t.Run("duplicates rejected", func(t *testing.T) {
		err := ValidateGuess([]int{1, 1, 2, 3}, noDup)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicates are not allowed")
	})
}

func TestGenerateSecret(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	t.Run("respects range and length", func(t *testing.T) {
		cfg := Config{Colors: 6, Pegs: 4, AllowDuplicates: true}
		for i := 0; i < 200; i++ {
			s := generateSecret(cfg, rng)
			require.NoError(t, ValidateGuess(s, cfg))
		}
	})
	t.Run("no duplicates when disallowed", func(t *testing.T) {
		cfg := Config{Colors: 6, Pegs: 6, AllowDuplicates: false}
		for i := 0; i < 200; i++ {
			s := generateSecret(cfg, rng)
			require.NoError(t, ValidateGuess(s, cfg))
		}
	})
	t.Run("seeded runs are reproducible", func(t *testing.T) {
		cfg := Config{Colors: 6, Pegs: 4, AllowDuplicates: true}
		a := generateSecret(cfg, rand.New(rand.NewSource(99)))
		b := generateSecret(cfg, rand.New(rand.NewSource(99)))
		assert.Equal(t, a, b)
	})
}

func TestGameWinDetection(t *testing.T) {
	secret := []int{1, 2, 3, 4}
	g, err := New(Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}, secret, nil)
	require.NoError(t, err)

	fb, err := g.Submit([]int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, Feedback{Black: 4, White: 0}, fb)
	assert.True(t, g.Won())
	assert.True(t, g.Over())
	assert.Equal(t, 1, g.TurnsTaken())

	_, err = g.Submit([]int{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestGameTurnLimitLoss(t *testing.T) {
	g, err := New(Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 3}, []int{5, 5, 5, 5}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.False(t, g.Over())
		_, err := g.Submit([]int{0, 1, 2, 3})
		require.NoError(t, err)
	}
	assert.True(t, g.Over())
	assert.False(t, g.Won())
	assert.Equal(t, 3, g.TurnsTaken())
}

func TestGameInvalidGuessDoesNotConsumeTurn(t *testing.T) {
	g, err := New(Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 2}, []int{5, 5, 5, 5}, nil)
	require.NoError(t, err)

	_, err = g.Submit([]int{0, 1, 2})
	assert.Error(t, err)
	assert.Equal(t, 0, g.TurnsTaken())
	assert.False(t, g.Over())
}

func TestGameRejectsBadSecret(t *testing.T) {
	_, err := New(Config{Colors: 6, Pegs: 4, AllowDuplicates: true}, []int{0, 1, 2, 9}, nil)
	assert.Error(t, err)
}

func TestGameSecretIsCopied(t *testing.T) {
	secret := []int{1, 2, 3, 4}
	g, err := New(Config{Colors: 6, Pegs: 4, AllowDuplicates: true}, secret, nil)
	require.NoError(t, err)

	got := g.Secret()
	got[0] = 5
	assert.Equal(t, []int{1, 2, 3, 4}, g.Secret())

	secret[1] = 5
	assert.Equal(t, []int{1, 2, 3, 4}, g.Secret())
}
