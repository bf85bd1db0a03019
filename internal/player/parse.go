// internal/player/parse.go
//
// Guess extraction from raw model output.
// Models are asked for `{"guess": [0,1,2,3]}` but routinely wrap it in
// markdown fences, prepend reasoning, or nest it inside a CLI wrapper
// object. Parsing tries progressively looser strategies:
//
//   0. Unwrap a {"response": "..."} envelope (gemini CLI JSON output).
//   1. Parse the whole response as the guess object.
//   2. Parse the contents of a ```json fenced block.
//   3. Parse the last {"guess": [...]} object found anywhere in the text.
//
// No strategy validates game rules here — range/length/uniqueness are the
// validator's job; this only recovers a well-formed integer sequence.

package player

import (
	"encoding/json"
	"regexp"
	"strings"
)

type guessPayload struct {
	Guess *[]int `json:"guess"`
}

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	inlineRe = regexp.MustCompile(`\{\s*"guess"\s*:\s*\[[-\d,\s]*\]\s*\}`)
)

// ParseGuess extracts an integer guess from raw output.
// Returns (guess, true) on success, (nil, false) otherwise.
func ParseGuess(raw string) ([]int, bool) {
	raw = unwrapEnvelope(strings.TrimSpace(raw))

	if g, ok := decodeGuess(raw); ok {
		return g, true
	}
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		if g, ok := decodeGuess(m[1]); ok {
			return g, true
		}
	}
	matches := inlineRe.FindAllString(raw, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if g, ok := decodeGuess(matches[i]); ok {
			return g, true
		}
	}
	return nil, false
}

// decodeGuess parses one candidate JSON object.
// A missing "guess" key, a null, or non-integer elements all fail.
func decodeGuess(s string) ([]int, bool) {
	var p guessPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, false
	}
	if p.Guess == nil {
		return nil, false
	}
	return *p.Guess, true
}

// unwrapEnvelope peels a {"response": "..."} wrapper if present; some
// CLI tools report their answer nested under that key.
func unwrapEnvelope(raw string) string {
	var env struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Response != nil {
		return *env.Response
	}
	return raw
}
