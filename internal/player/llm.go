// internal/player/llm.go
//
// API-backed guesser speaking the OpenAI-compatible chat-completions
// protocol. One POST per proposal, with bounded exponential backoff for
// transient transport failures and rate limiting. Works against any
// provider exposing the /chat/completions shape (OpenAI, Groq, DeepSeek,
// local gateways) by switching BaseURL and Model.

package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/record"
)

// Transport retry bounds. These cover network-level failures only;
// content-level retries (bad guesses) are the turn executor's budget.
const (
	llmMaxAttempts = 3
	llmBaseDelay   = 1 * time.Second
	llmMaxDelay    = 30 * time.Second
)

// LLMConfig configures the API guesser.
type LLMConfig struct {
	BaseURL     string  // e.g. https://api.openai.com/v1
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLM is an API-backed Guesser.
type LLM struct {
	cfg    LLMConfig
	game   game.Config
	system string
	client *http.Client
}

// NewLLM builds an API guesser for the given game rules.
func NewLLM(cfg LLMConfig, gameCfg game.Config) *LLM {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &LLM{
		cfg:    cfg,
		game:   gameCfg,
		system: SystemPrompt(gameCfg),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Info describes this backend for the game record.
func (l *LLM) Info() record.GuesserInfo {
	return record.GuesserInfo{
		Mode:        "api",
		Model:       l.cfg.Model,
		Temperature: l.cfg.Temperature,
		MaxTokens:   l.cfg.MaxTokens,
	}
}

// --- wire types -------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Propose asks the model for the next guess.
func (l *LLM) Propose(ctx context.Context, req Request) (Proposal, error) {
	messages := []chatMessage{
		{Role: "system", Content: l.system},
		{Role: "user", Content: UserPrompt(req)},
	}

	raw, tokens, err := l.callChat(ctx, messages)
	if err != nil {
		return Proposal{}, err
	}

	prop := Proposal{Raw: raw, Tokens: &tokens}
	if guess, ok := ParseGuess(raw); ok {
		prop.Guess = guess
		prop.Parsed = true
	} else {
		prop.Err = "response did not contain a parseable guess, expected {\"guess\": [...]}"
	}
	return prop, nil
}

// callChat POSTs one chat-completion request, retrying transient
// failures with exponential backoff. 429 and 5xx are retried; other
// non-2xx statuses fail immediately.
func (l *LLM) callChat(ctx context.Context, messages []chatMessage) (string, record.TokenUsage, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.cfg.Model,
		Messages:    messages,
		Temperature: l.cfg.Temperature,
		MaxTokens:   l.cfg.MaxTokens,
	})
	if err != nil {
		return "", record.TokenUsage{}, err
	}

	var lastErr error
	delay := llmBaseDelay

	for attempt := 0; attempt < llmMaxAttempts; attempt++ {
		if attempt > 0 {
			log.Debug().Int("attempt", attempt+1).Err(lastErr).Msg("retrying model call")
			select {
			case <-ctx.Done():
				return "", record.TokenUsage{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > llmMaxDelay {
				delay = llmMaxDelay
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			l.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", record.TokenUsage{}, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := l.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("model API returned %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return "", record.TokenUsage{}, fmt.Errorf("model API error %s: %s", resp.Status, bytes.TrimSpace(msg))
		}

		var cr chatResponse
		err = json.NewDecoder(resp.Body).Decode(&cr)
		resp.Body.Close()
		if err != nil {
			return "", record.TokenUsage{}, fmt.Errorf("decode model response: %w", err)
		}
		if len(cr.Choices) == 0 {
			return "", record.TokenUsage{}, fmt.Errorf("model API returned no choices")
		}

		usage := record.TokenUsage{Input: cr.Usage.PromptTokens, Output: cr.Usage.CompletionTokens}
		return cr.Choices[0].Message.Content, usage, nil
	}

	return "", record.TokenUsage{}, fmt.Errorf("model call failed after %d attempts: %w", llmMaxAttempts, lastErr)
}
