// internal/player/cli.go
//
// Guesser backed by a local agent CLI (claude, codex, gemini).
// Each proposal shells out once with a full prompt; the tool's stdout is
// parsed like any other model output. CLI tools report no token usage.
//
// Invocation shapes differ per tool:
//   claude — prompt on stdin, `claude --print`
//   codex  — `codex exec <prompt>`
//   gemini — `gemini --output-format json <prompt>` ({"response": ...} envelope)

package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/record"
)

// CLITools lists the supported local agent CLIs.
var CLITools = []string{"claude", "codex", "gemini"}

// CLIConfig configures the subprocess guesser.
type CLIConfig struct {
	Tool    string        // one of CLITools
	Timeout time.Duration // per-invocation wall clock, default 2m
}

// CLI is a subprocess-backed Guesser.
type CLI struct {
	cfg    CLIConfig
	game   game.Config
	system string
}

// NewCLI builds a subprocess guesser, rejecting unknown tools up front.
func NewCLI(cfg CLIConfig, gameCfg game.Config) (*CLI, error) {
	known := false
	for _, t := range CLITools {
		if cfg.Tool == t {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown CLI tool %q, supported: %s", cfg.Tool, strings.Join(CLITools, ", "))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &CLI{cfg: cfg, game: gameCfg, system: SystemPrompt(gameCfg)}, nil
}

// Info describes this backend for the game record.
func (c *CLI) Info() record.GuesserInfo {
	return record.GuesserInfo{Mode: "cli", Model: c.cfg.Tool + "-cli"}
}

// Propose invokes the CLI tool once and parses its stdout.
func (c *CLI) Propose(ctx context.Context, req Request) (Proposal, error) {
	prompt := c.system + "\n\n" + UserPrompt(req)

	raw, err := c.invoke(ctx, prompt)
	if err != nil {
		return Proposal{}, err
	}

	prop := Proposal{Raw: raw}
	if guess, ok := ParseGuess(raw); ok {
		prop.Guess = guess
		prop.Parsed = true
	} else {
		prop.Err = "CLI output did not contain a parseable guess, expected {\"guess\": [...]}"
	}
	return prop, nil
}

// invoke runs one CLI call with a bounded timeout.
func (c *CLI) invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	switch c.cfg.Tool {
	case "claude":
		cmd = exec.CommandContext(ctx, "claude", "--print")
		cmd.Stdin = strings.NewReader(prompt)
	case "codex":
		cmd = exec.CommandContext(ctx, "codex", "exec", prompt)
	case "gemini":
		cmd = exec.CommandContext(ctx, "gemini", "--output-format", "json", prompt)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s CLI timed out after %s", c.cfg.Tool, c.cfg.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s CLI failed: %s", c.cfg.Tool, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
