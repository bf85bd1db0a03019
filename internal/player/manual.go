// internal/player/manual.go
//
// Manual guesser for benchmarking web UIs that have no API.
// Prints the full prompt for the operator to paste into the model's web
// interface, then reads the pasted reply from stdin. The label names the
// model being driven by hand so records stay attributable.

package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmbench/mmbench/internal/game"
	"github.com/mmbench/mmbench/internal/record"
)

// ErrQuit is returned when the operator types "quit" instead of a reply.
var ErrQuit = errors.New("operator quit")

// Manual is a human-relayed Guesser.
type Manual struct {
	label  string
	game   game.Config
	system string
	in     *bufio.Reader
	out    io.Writer
}

// NewManual builds a manual guesser reading replies from in and writing
// prompts to out.
func NewManual(label string, gameCfg game.Config, in io.Reader, out io.Writer) *Manual {
	if label == "" {
		label = "web-ui"
	}
	return &Manual{
		label:  label,
		game:   gameCfg,
		system: SystemPrompt(gameCfg),
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Info describes this backend for the game record.
func (m *Manual) Info() record.GuesserInfo {
	return record.GuesserInfo{Mode: "manual", Model: m.label}
}

// Propose shows the prompt and reads the operator's pasted reply.
// A single line is read; a reply of "quit" aborts the game.
func (m *Manual) Propose(ctx context.Context, req Request) (Proposal, error) {
	prompt := m.system + "\n\n" + UserPrompt(req)

	fmt.Fprintln(m.out, strings.Repeat("=", 70))
	fmt.Fprintln(m.out, "PASTE THIS PROMPT INTO YOUR MODEL'S WEB UI")
	fmt.Fprintln(m.out, strings.Repeat("=", 70))
	fmt.Fprintln(m.out, prompt)
	fmt.Fprintln(m.out, strings.Repeat("=", 70))
	fmt.Fprint(m.out, "Paste the model's reply (or 'quit' to abort): ")

	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return Proposal{}, fmt.Errorf("read reply: %w", err)
	}
	reply := strings.TrimSpace(line)
	if strings.EqualFold(reply, "quit") {
		return Proposal{}, ErrQuit
	}

	prop := Proposal{Raw: reply}
	if guess, ok := ParseGuess(reply); ok {
		prop.Guess = guess
		prop.Parsed = true
	} else {
		prop.Err = "reply did not contain a parseable guess, expected {\"guess\": [...]}"
	}
	return prop, nil
}
