// Package quorum defines the session model for the two-round batch
// answering pipeline: each input question gets a session that collects
// sampled answers in round 1 and consensus final answers in round 2.
package quorum

// Question is one entry of the questions input file.
type Question struct {
	// Text is the question body.
	Text string `json:"question_text"`
	// Options is an optional ordered list of answer choices.
	// When present, the model is instructed to answer only from these.
	Options []string `json:"options,omitempty"`
}

// State tracks a session's progress through the pipeline.
// Transitions are strictly forward: Created -> Answered -> Finalized.
type State int

const (
	// StateCreated means the session exists but no round has run.
	StateCreated State = iota
	// StateAnswered means round 1 attached answer candidates.
	StateAnswered
	// StateFinalized means round 2 attached final-answer candidates.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAnswered:
		return "answered"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Session accumulates per-question state across both generation rounds.
// It is created once at batch start, mutated by each round, and read at
// persistence time; sessions are never deleted within a run.
type Session struct {
	// ID is the question identifier from the input file.
	ID string
	// Question is the raw question payload.
	Question Question
	// FormattedQuestion is the model-facing question text, built once
	// at session creation and never recomputed.
	FormattedQuestion string
	// Answers holds round-1 candidates in engine generation order.
	Answers []string
	// FinalAnswers holds round-2 candidates, present only after round 2.
	FinalAnswers []string
	// FormattedOutput is the rendered transcript, recomputed whenever
	// candidates change. Round 2 embeds it verbatim in its prompt.
	FormattedOutput string
	// State is the session's pipeline state.
	State State
}

// Store is an insertion-ordered session collection keyed by question id.
// Iteration order is insertion order, which defines display order in
// transcripts and output files.
type Store struct {
	ids  []string
	byID map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Session)}
}

// Add inserts a session. Re-adding an id replaces the session but keeps
// its original position.
func (st *Store) Add(s *Session) {
	if _, ok := st.byID[s.ID]; !ok {
		st.ids = append(st.ids, s.ID)
	}
	st.byID[s.ID] = s
}

// Get returns the session for id, or nil.
func (st *Store) Get(id string) *Session {
	return st.byID[id]
}

// Len returns the number of sessions.
func (st *Store) Len() int {
	return len(st.ids)
}

// Sessions returns all sessions in insertion order.
func (st *Store) Sessions() []*Session {
	out := make([]*Session, len(st.ids))
	for i, id := range st.ids {
		out[i] = st.byID[id]
	}
	return out
}

// Params is the sampling configuration handed to the inference engine
// unmodified: number of returned samples, candidate pool size before
// down-selection, and output token cap.
type Params struct {
	N         int `json:"n" toml:"n"`
	BestOf    int `json:"best_of" toml:"best_of"`
	MaxTokens int `json:"max_tokens" toml:"max_tokens"`
}
