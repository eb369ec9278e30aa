// Package prompt assembles conversation prompts in the Mixtral-instruct
// format. The marker tokens and single-space joining are a wire contract
// with the inference engine: any deviation silently changes model
// behavior, so the grammar is reproduced byte for byte.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Special tokens of the instruct format.
const (
	bos       = "<s>"
	eos       = "</s>"
	instStart = "[INST]"
	instEnd   = "[/INST]"
)

// ErrTurnMismatch is returned when the conversation does not end with an
// unanswered user turn.
var ErrTurnMismatch = errors.New("user messages must number bot messages plus one")

// Build produces a single model-ready prompt from an alternating
// conversation history. Each answered turn renders as
// "[INST] user [/INST] bot </s>"; the final, unanswered user message
// renders as "[INST] user [/INST]" with no trailing bot turn. All tokens
// are joined with single spaces after a leading start-of-sequence marker.
//
// The required precondition is len(users) == len(bots)+1; violations
// return ErrTurnMismatch and no output.
func Build(users, bots []string) (string, error) {
	if len(users) != len(bots)+1 {
		return "", fmt.Errorf("%w (got %d user, %d bot)", ErrTurnMismatch, len(users), len(bots))
	}

	parts := make([]string, 0, 5*len(bots)+4)
	parts = append(parts, bos)
	for i, bot := range bots {
		parts = append(parts, instStart, users[i], instEnd, bot, eos)
	}
	parts = append(parts, instStart, users[len(users)-1], instEnd)

	return strings.Join(parts, " "), nil
}
