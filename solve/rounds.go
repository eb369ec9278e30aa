package solve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	quorum "github.com/csabak/quorum"
	"github.com/csabak/quorum/prompt"
)

// finalInstruction is the round-2 consolidation request. Exact wording
// is part of the prompt contract.
const finalInstruction = "Please provide the CORRECT final answer based on the question and the independent answers above. Explain why please!\n"

var finalSeparator = strings.Repeat("~", 10)

// Engine runs the two generation rounds over a session store. The
// backing generator is injected once at construction; there is no
// process-wide engine handle.
type Engine struct {
	gen    Generator
	round1 quorum.Params
	round2 quorum.Params
}

// NewEngine creates an engine using cfg's sampling parameters.
func NewEngine(gen Generator, cfg *quorum.Config) *Engine {
	return &Engine{
		gen:    gen,
		round1: cfg.Sampling.Round1,
		round2: cfg.Sampling.Round2,
	}
}

// AnswerBatch runs round 1: one single-turn prompt per session, one
// batched engine call, wide sampling. Candidates attach to sessions in
// engine order. A failure in the batched call fails the whole round;
// there is no per-session isolation.
func (e *Engine) AnswerBatch(ctx context.Context, store *quorum.Store) error {
	sessions := store.Sessions()
	prompts := make([]string, len(sessions))
	for i, s := range sessions {
		p, err := prompt.Build([]string{s.FormattedQuestion}, nil)
		if err != nil {
			return fmt.Errorf("session %s: %w", s.ID, err)
		}
		prompts[i] = p
	}

	slog.Info("generating answers", "sessions", len(sessions), "n", e.round1.N, "best_of", e.round1.BestOf)
	answers, err := e.gen.Generate(ctx, prompts, e.round1)
	if err != nil {
		return fmt.Errorf("round 1 generation: %w", err)
	}

	for i, s := range sessions {
		s.Answers = answers[i]
		s.State = quorum.StateAnswered
	}
	return nil
}

// AnswerFinal runs round 2: each session's rendered round-1 transcript
// becomes the sole user turn, followed by the consolidation instruction.
// FormatOutputs must have run first; the transcript is embedded verbatim.
func (e *Engine) AnswerFinal(ctx context.Context, store *quorum.Store) error {
	sessions := store.Sessions()
	prompts := make([]string, len(sessions))
	for i, s := range sessions {
		if s.FormattedOutput == "" {
			return fmt.Errorf("session %s: transcript not rendered before final round", s.ID)
		}
		turn := fmt.Sprintf("%s\n%s\n\n%s", s.FormattedOutput, finalSeparator, finalInstruction)
		p, err := prompt.Build([]string{turn}, nil)
		if err != nil {
			return fmt.Errorf("session %s: %w", s.ID, err)
		}
		prompts[i] = p
	}

	slog.Info("generating final answers", "sessions", len(sessions), "n", e.round2.N, "best_of", e.round2.BestOf)
	finals, err := e.gen.Generate(ctx, prompts, e.round2)
	if err != nil {
		return fmt.Errorf("round 2 generation: %w", err)
	}

	for i, s := range sessions {
		s.FinalAnswers = finals[i]
		s.State = quorum.StateFinalized
	}
	return nil
}

// Run executes one full pipeline pass:
// round 1 -> render -> save -> round 2 -> render -> save.
// Cancellation is consumed at round boundaries; an in-flight engine call
// is cancelled through its context.
func (e *Engine) Run(ctx context.Context, store *quorum.Store, answersPath, finalPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.AnswerBatch(ctx, store); err != nil {
		return err
	}
	FormatOutputs(store)
	if err := Save(store, answersPath); err != nil {
		return fmt.Errorf("save answers: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.AnswerFinal(ctx, store); err != nil {
		return err
	}
	FormatOutputs(store)
	if err := Save(store, finalPath); err != nil {
		return fmt.Errorf("save final answers: %w", err)
	}
	return nil
}
