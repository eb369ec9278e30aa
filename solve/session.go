// Package solve drives the two-round batch answering pipeline: load
// questions, sample answers for each in one batched engine call, render
// transcripts, then re-query the engine over each transcript for a
// consensus final answer.
package solve

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	quorum "github.com/csabak/quorum"
)

// questionSuffix is appended to every formatted question. Exact wording
// is part of the prompt contract.
const questionSuffix = "\n\n Please provide the answer and explain your reasoning!" +
	" If there are options to choose from, do not provide an answer different from the options.\n"

var (
	answerRule = strings.Repeat("-", 45)
	finalRule  = strings.Repeat("-", 43)
	fileRule   = strings.Repeat("=", 100)
)

// FormatQuestion renders the model-facing question text: a QUESTION
// line, one OPTION line per choice (zero-based, input order), then the
// fixed instructional suffix.
func FormatQuestion(q quorum.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "OPTION %d: %s\n", i, opt)
	}
	b.WriteString(questionSuffix)
	return b.String()
}

// NewSession creates a session for one question. The formatted question
// is built here and cached for the session's lifetime.
func NewSession(id string, q quorum.Question) *quorum.Session {
	return &quorum.Session{
		ID:                id,
		Question:          q,
		FormattedQuestion: FormatQuestion(q),
		State:             quorum.StateCreated,
	}
}

// LoadQuestions reads a questions file: a JSON object mapping question
// ids to question payloads. Object key order defines session order, so
// the document is walked token by token instead of decoded into a map.
func LoadQuestions(path string) (*quorum.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	store, err := ParseQuestions(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return store, nil
}

// ParseQuestions decodes a questions document from r, preserving the
// document order of question ids.
func ParseQuestions(r io.Reader) (*quorum.Store, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	store := quorum.NewStore()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected question id, got %v", tok)
		}

		var q quorum.Question
		if err := dec.Decode(&q); err != nil {
			return nil, fmt.Errorf("question %s: %w", id, err)
		}
		store.Add(NewSession(id, q))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return store, nil
}

// FormatOutputs renders each session's transcript into FormattedOutput.
// Rendering is pure: calling it twice on unchanged sessions produces
// byte-identical text.
func FormatOutputs(store *quorum.Store) {
	for _, s := range store.Sessions() {
		s.FormattedOutput = renderSession(s)
	}
}

// renderSession renders one session: the formatted question, then each
// answer candidate under a numbered delimiter, then any final-answer
// candidates under the FINAL ANSWER delimiter. The renderer supports
// multiple final answers even though the default round-2 call requests
// one.
func renderSession(s *quorum.Session) string {
	var b strings.Builder
	b.WriteString(s.FormattedQuestion)
	b.WriteString("\n\n\n")
	for i, answer := range s.Answers {
		fmt.Fprintf(&b, "%s[ANSWER %d]%s\n%s\n\n\n", answerRule, i, answerRule, answer)
	}
	for _, final := range s.FinalAnswers {
		fmt.Fprintf(&b, "%s[FINAL ANSWER]%s\n%s\n\n\n", finalRule, finalRule, final)
	}
	return b.String()
}

// Save writes every session's current transcript to path, each under a
// numbered header in store order. The file is fully overwritten on each
// call; a crash mid-write leaves a truncated file.
func Save(store *quorum.Store, path string) error {
	var b strings.Builder
	for i, s := range store.Sessions() {
		fmt.Fprintf(&b, "%s\nQuestion #%d (ID%s)\n%s\n", fileRule, i, s.ID, fileRule)
		fmt.Fprintf(&b, "%s\n\n\n", s.FormattedOutput)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
