package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/record"
)

var testGameCfg = game.Config{Colors: 6, Pegs: 4, AllowDuplicates: true, MaxTurns: 12}

// chatStub fakes an OpenAI-compatible /chat/completions endpoint.
func chatStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string, in, out int) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"prompt_tokens": in, "completion_tokens": out},
	}
}

func TestLLMPropose(t *testing.T) {
	var gotReq chatRequest
	srv := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(completion(`{"guess": [0, 1, 2, 3]}`, 100, 12))
	})

	llm := NewLLM(LLMConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"}, testGameCfg)

	prop, err := llm.Propose(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, prop.Parsed)
	assert.Equal(t, []int{0, 1, 2, 3}, prop.Guess)
	assert.Equal(t, &record.TokenUsage{Input: 100, Output: 12}, prop.Tokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "You are playing Mastermind")
	assert.Equal(t, "Make your first guess.", gotReq.Messages[1].Content)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestLLMProposeUnparseable(t *testing.T) {
	srv := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("I refuse to answer in JSON.", 90, 8))
	})
	llm := NewLLM(LLMConfig{BaseURL: srv.URL, Model: "m"}, testGameCfg)

	prop, err := llm.Propose(context.Background(), Request{})
	require.NoError(t, err)
	assert.False(t, prop.Parsed)
	assert.Nil(t, prop.Guess)
	assert.NotEmpty(t, prop.Err)
	assert.Equal(t, "I refuse to answer in JSON.", prop.Raw)
}

func TestLLMRetriesRateLimit(t *testing.T) {
	calls := 0
	srv := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(completion(`{"guess": [1, 1, 1, 1]}`, 50, 10))
	})
	llm := NewLLM(LLMConfig{BaseURL: srv.URL, Model: "m"}, testGameCfg)

	prop, err := llm.Propose(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, prop.Parsed)
}

func TestLLMFatalOnClientError(t *testing.T) {
	calls := 0
	srv := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": "invalid model"}`, http.StatusBadRequest)
	})
	llm := NewLLM(LLMConfig{BaseURL: srv.URL, Model: "m"}, testGameCfg)

	_, err := llm.Propose(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx other than 429 must not be retried")
	assert.Contains(t, err.Error(), "invalid model")
}

func TestLLMExhaustsTransportRetries(t *testing.T) {
	calls := 0
	srv := chatStub(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	llm := NewLLM(LLMConfig{BaseURL: srv.URL, Model: "m"}, testGameCfg)

	_, err := llm.Propose(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, llmMaxAttempts, calls)
}

func TestLLMInfo(t *testing.T) {
	llm := NewLLM(LLMConfig{Model: "gpt-4o", Temperature: 0.2, MaxTokens: 256}, testGameCfg)
	assert.Equal(t, record.GuesserInfo{Mode: "api", Model: "gpt-4o", Temperature: 0.2, MaxTokens: 256}, llm.Info())
}
