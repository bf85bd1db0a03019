package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/player"
	"github.com/mmbench/mmbench/internal/record"
)

var cfg = game.Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}

// step is one scripted guesser response.
type step struct {
	prop  player.Proposal
	err   error
	delay time.Duration
}

// scriptGuesser replays a fixed sequence of proposals.
type scriptGuesser struct {
	steps []step
	i     int
}

func (s *scriptGuesser) Propose(ctx context.Context, req player.Request) (player.Proposal, error) {
	if s.i >= len(s.steps) {
		panic("script exhausted")
	}
	st := s.steps[s.i]
	s.i++
	if st.delay > 0 {
		time.Sleep(st.delay)
	}
	return st.prop, st.err
}

func (s *scriptGuesser) Info() record.GuesserInfo {
	return record.GuesserInfo{Mode: "api", Model: "scripted"}
}

func guessStep(guess []int, in, out int) step {
	return step{prop: player.Proposal{
		Guess:  guess,
		Raw:    fmt.Sprintf(`{"guess": %v}`, guess),
		Parsed: true,
		Tokens: &record.TokenUsage{Input: in, Output: out},
	}}
}

func garbageStep() step {
	return step{prop: player.Proposal{
		Raw:    "the answer is probably red",
		Parsed: false,
		Err:    "no guess found",
		Tokens: &record.TokenUsage{Input: 10, Output: 5},
	}}
}

func newSession(t *testing.T, g player.Guesser, opts Options, secret []int) *Session {
	t.Helper()
	s, err := New(cfg, g, opts, secret, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return s
}

func TestRunWin(t *testing.T) {
	secret := []int{1, 2, 3, 4}
	gu := &scriptGuesser{steps: []step{
		guessStep([]int{0, 0, 0, 0}, 100, 10),
		guessStep([]int{1, 2, 3, 4}, 120, 10),
	}}
	s := newSession(t, gu, Options{}, secret)

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeWin, rec.Outcome)
	assert.Equal(t, record.StopSolved, rec.StopReason)
	assert.Equal(t, 2, rec.TotalTurns)
	assert.Equal(t, secret, rec.Secret)
	require.Len(t, rec.Turns, 2)
	assert.Equal(t, &game.Feedback{Black: 4, White: 0}, rec.Turns[1].Feedback)
	assert.Equal(t, record.TokenUsage{Input: 220, Output: 20}, rec.TotalTokens)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "scripted", rec.Guesser.Model)
}

func TestRunTurnLimitLoss(t *testing.T) {
	short := cfg
	short.MaxTurns = 3
	var steps []step
	for i := 0; i < 3; i++ {
		steps = append(steps, guessStep([]int{0, 0, 0, 0}, 10, 1))
	}
	gu := &scriptGuesser{steps: steps}
	s, err := New(short, gu, Options{}, []int{5, 5, 5, 5}, nil)
	require.NoError(t, err)

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeLoss, rec.Outcome)
	assert.Equal(t, record.StopTurnLimit, rec.StopReason)
	assert.Equal(t, 3, rec.TotalTurns)
	assert.Len(t, rec.Turns, 3)
}

func TestRunRetryExhaustionIsError(t *testing.T) {
	gu := &scriptGuesser{steps: []step{garbageStep(), garbageStep()}}
	s := newSession(t, gu, Options{RetryBudget: 1}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeError, rec.Outcome)
	assert.Equal(t, record.StopRetryExhausted, rec.StopReason)
	assert.Equal(t, 0, rec.TotalTurns, "a failed turn must not consume the turn budget")
	require.Len(t, rec.Turns, 1)
	assert.Nil(t, rec.Turns[0].Guess)
	assert.Nil(t, rec.Turns[0].Feedback)
	assert.Contains(t, rec.Turns[0].Error, "exhausted retries")
	// Both attempts' tokens are billed to the terminal turn.
	assert.Equal(t, record.TokenUsage{Input: 20, Output: 10}, rec.TotalTokens)
}

func TestRunRetryThenRecover(t *testing.T) {
	gu := &scriptGuesser{steps: []step{
		garbageStep(),                       // attempt 1: unparseable
		guessStep([]int{0, 1, 2, 9}, 20, 2), // attempt 2: out of range
		guessStep([]int{1, 2, 3, 4}, 30, 3), // attempt 3: valid, wins
	}}
	s := newSession(t, gu, Options{RetryBudget: 2}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeWin, rec.Outcome)
	assert.Equal(t, 1, rec.TotalTurns)
	require.Len(t, rec.Turns, 1)
	assert.Equal(t, []int{1, 2, 3, 4}, rec.Turns[0].Guess)
	assert.Equal(t, record.TokenUsage{Input: 60, Output: 10}, rec.TotalTokens)
}

func TestRunTransportFailureIsFatal(t *testing.T) {
	gu := &scriptGuesser{steps: []step{
		guessStep([]int{0, 0, 0, 0}, 10, 1),
		{err: errors.New("connection refused")},
	}}
	s := newSession(t, gu, Options{}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeError, rec.Outcome)
	assert.Equal(t, record.StopFatal, rec.StopReason)
	require.Len(t, rec.Turns, 2, "partial turn data is preserved")
	assert.Contains(t, rec.Turns[1].Error, "connection refused")
}

func TestRunCallCeiling(t *testing.T) {
	var steps []step
	for i := 0; i < 5; i++ {
		steps = append(steps, guessStep([]int{0, 0, 0, 0}, 1, 1))
	}
	gu := &scriptGuesser{steps: steps}
	s := newSession(t, gu, Options{MaxCalls: 3}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeLoss, rec.Outcome)
	assert.Equal(t, record.StopCallLimit, rec.StopReason)
	assert.Equal(t, 3, gu.i, "no call beyond the ceiling")
	require.Len(t, rec.Turns, 4)
	assert.Contains(t, rec.Turns[3].Error, "call ceiling")
}

func TestRunTimeCeiling(t *testing.T) {
	gu := &scriptGuesser{steps: []step{
		{prop: player.Proposal{Guess: []int{0, 0, 0, 0}, Raw: "x", Parsed: true}, delay: 30 * time.Millisecond},
		guessStep([]int{0, 0, 0, 0}, 1, 1),
	}}
	s := newSession(t, gu, Options{MaxDuration: 10 * time.Millisecond}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeLoss, rec.Outcome)
	assert.Equal(t, record.StopTimeLimit, rec.StopReason)
	assert.Equal(t, 1, gu.i, "no new turn once the clock has run out")
	assert.Contains(t, rec.Turns[len(rec.Turns)-1].Error, "wall-clock ceiling")
}

func TestRunPanicRecovered(t *testing.T) {
	gu := &scriptGuesser{steps: []step{guessStep([]int{0, 0, 0, 0}, 1, 1)}} // second call panics
	s := newSession(t, gu, Options{}, []int{1, 2, 3, 4})

	rec := s.Run(context.Background())

	assert.Equal(t, record.OutcomeError, rec.Outcome)
	assert.Equal(t, record.StopFatal, rec.StopReason)
	require.Len(t, rec.Turns, 2)
	assert.Contains(t, rec.Turns[1].Error, "fatal error")
}

func TestRunContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gu := &scriptGuesser{}
	s := newSession(t, gu, Options{}, []int{1, 2, 3, 4})

	rec := s.Run(ctx)

	assert.Equal(t, record.OutcomeError, rec.Outcome)
	assert.Equal(t, 0, gu.i)
	require.NotEmpty(t, rec.Turns)
	assert.Contains(t, rec.Turns[0].Error, "canceled")
}

func TestRunSeededSecretsReproduce(t *testing.T) {
	run := func() []int {
		gu := &scriptGuesser{steps: []step{{err: errors.New("stop early")}}}
		s, err := New(cfg, gu, Options{}, nil, rand.New(rand.NewSource(123)))
		require.NoError(t, err)
		return s.Run(context.Background()).Secret
	}
	assert.Equal(t, run(), run())
}

func TestNewRejectsBadConfigAndSecret(t *testing.T) {
	gu := &scriptGuesser{}
	_, err := New(game.Config{Colors: 1, Pegs: 4}, gu, Options{}, nil, nil)
	assert.Error(t, err)

	_, err = New(cfg, gu, Options{}, []int{9, 9, 9, 9}, nil)
	assert.Error(t, err)
}
