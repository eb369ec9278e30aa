package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	quorum "github.com/csabak/quorum"
)

// embeddingServer maps known texts to fixed vectors; unknown texts get a
// far-away vector so they never win a similarity search by accident.
func embeddingServer(t *testing.T, vectors map[string][]float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		vec, ok := vectors[req.Input]
		if !ok {
			vec = []float32{-100, -100, -100}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"What is 2+2?":          {1, 0, 0},
		"What is two plus two?": {0.9, 0.1, 0},
		"Why is the sky blue?":  {0, 1, 0},
		"capital of France?":    {0, 0, 1},
	}
}

func newTestIndex(t *testing.T, ttl time.Duration) *Index {
	t.Helper()
	srv := embeddingServer(t, testVectors())
	ix := NewIndex(NewEmbedder(srv.URL, "", "test-embed"), ttl)
	t.Cleanup(ix.Close)
	return ix
}

func TestAddAndSearch(t *testing.T) {
	ix := newTestIndex(t, time.Hour)
	ctx := context.Background()

	entries := []Entry{
		{ID: "q1", Question: "What is 2+2?", FinalAnswer: "4"},
		{ID: "q2", Question: "Why is the sky blue?", FinalAnswer: "Rayleigh scattering"},
		{ID: "q3", Question: "capital of France?", FinalAnswer: "Paris"},
	}
	for _, e := range entries {
		if err := ix.Add(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ix.Search(ctx, "What is two plus two?", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].ID != "q1" || got[0].FinalAnswer != "4" {
		t.Errorf("expected q1, got %+v", got[0])
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := newTestIndex(t, time.Hour)
	got, err := ix.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected no results, got %v", got)
	}
}

func TestExpiredEntriesSkipped(t *testing.T) {
	ix := newTestIndex(t, 10*time.Millisecond)
	ctx := context.Background()

	if err := ix.Add(ctx, Entry{ID: "q1", Question: "What is 2+2?", FinalAnswer: "4"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	got, err := ix.Search(ctx, "What is two plus two?", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expired entry returned: %v", got)
	}
}

func TestAddSessionsIndexesOnlyFinalized(t *testing.T) {
	ix := newTestIndex(t, time.Hour)
	ctx := context.Background()

	store := quorum.NewStore()
	done := &quorum.Session{
		ID:           "q1",
		Question:     quorum.Question{Text: "What is 2+2?"},
		FinalAnswers: []string{"4"},
		State:        quorum.StateFinalized,
	}
	pending := &quorum.Session{
		ID:       "q2",
		Question: quorum.Question{Text: "Why is the sky blue?"},
		Answers:  []string{"scattering"},
		State:    quorum.StateAnswered,
	}
	store.Add(done)
	store.Add(pending)

	if err := ix.AddSessions(ctx, store); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 1 {
		t.Errorf("expected 1 indexed entry, got %d", ix.Len())
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recall.json")

	ix := newTestIndex(t, time.Hour)
	if err := ix.Add(ctx, Entry{ID: "q1", Question: "What is 2+2?", FinalAnswer: "4"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.SaveCache(path); err != nil {
		t.Fatal(err)
	}

	fresh := newTestIndex(t, time.Hour)
	if err := fresh.LoadCache(path); err != nil {
		t.Fatal(err)
	}
	if fresh.Len() != 1 {
		t.Fatalf("expected 1 entry after load, got %d", fresh.Len())
	}

	got, err := fresh.Search(ctx, "What is two plus two?", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "q1" {
		t.Errorf("cache-loaded search failed: %v", got)
	}
}

func TestCacheModelMismatchSkipped(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recall.json")

	ix := newTestIndex(t, time.Hour)
	if err := ix.Add(ctx, Entry{ID: "q1", Question: "What is 2+2?", FinalAnswer: "4"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.SaveCache(path); err != nil {
		t.Fatal(err)
	}

	srv := embeddingServer(t, testVectors())
	other := NewIndex(NewEmbedder(srv.URL, "", "different-model"), time.Hour)
	t.Cleanup(other.Close)

	if err := other.LoadCache(path); err != nil {
		t.Fatal(err)
	}
	if other.Len() != 0 {
		t.Errorf("cache from different model loaded: %d entries", other.Len())
	}
}
