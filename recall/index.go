// Package recall indexes answered questions by embedding so the chat
// driver can surface similar, previously finalized answers. The index is
// fully optional: without an embedding endpoint configured, nothing here
// runs.
package recall

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/jellydator/ttlcache/v3"

	quorum "github.com/csabak/quorum"
)

// Entry is one recallable answered question.
type Entry struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	FinalAnswer string `json:"final_answer"`
}

// Index maps question embeddings to answered sessions. Entries expire
// after the configured TTL so stale answers age out between runs.
type Index struct {
	embedder *Embedder
	ttl      time.Duration

	mu      sync.RWMutex
	graph   *hnsw.Graph[string] // keyed by question hash
	vectors map[string][]float32
	entries *ttlcache.Cache[string, Entry]
}

// NewIndex creates an index backed by the given embedder.
func NewIndex(embedder *Embedder, ttl time.Duration) *Index {
	entries := ttlcache.New[string, Entry](
		ttlcache.WithTTL[string, Entry](ttl),
		ttlcache.WithDisableTouchOnHit[string, Entry](),
	)
	go entries.Start()
	return &Index{
		embedder: embedder,
		ttl:      ttl,
		graph:    hnsw.NewGraph[string](),
		vectors:  make(map[string][]float32),
		entries:  entries,
	}
}

// Close stops the entry expiration loop.
func (ix *Index) Close() {
	ix.entries.Stop()
}

// Len returns the number of live entries.
func (ix *Index) Len() int {
	return ix.entries.Len()
}

// Add embeds the entry's question and inserts it. Re-adding the same
// question text refreshes the entry without re-embedding.
func (ix *Index) Add(ctx context.Context, e Entry) error {
	hash := hashText(e.Question)

	ix.mu.RLock()
	_, known := ix.vectors[hash]
	ix.mu.RUnlock()

	if !known {
		vec, err := ix.embedder.Embed(ctx, e.Question)
		if err != nil {
			return fmt.Errorf("embed question %s: %w", e.ID, err)
		}
		ix.mu.Lock()
		ix.vectors[hash] = vec
		ix.graph.Add(hnsw.MakeNode(hash, vec))
		ix.mu.Unlock()
	}

	ix.entries.Set(hash, e, ttlcache.DefaultTTL)
	return nil
}

// AddSessions indexes every finalized session of the store.
func (ix *Index) AddSessions(ctx context.Context, store *quorum.Store) error {
	for _, s := range store.Sessions() {
		if s.State != quorum.StateFinalized || len(s.FinalAnswers) == 0 {
			continue
		}
		e := Entry{ID: s.ID, Question: s.Question.Text, FinalAnswer: s.FinalAnswers[0]}
		if err := ix.Add(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to topK entries most similar to the query text.
// Expired entries are skipped even if their vectors are still in the
// graph.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Entry, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := ix.graph.Search(queryVec, topK)
	results := make([]Entry, 0, len(neighbors))
	for _, n := range neighbors {
		item := ix.entries.Get(n.Key)
		if item == nil {
			continue
		}
		results = append(results, item.Value())
	}
	return results, nil
}

type cacheFile struct {
	Model   string       `json:"model"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Hash      string    `json:"hash"`
	Entry     Entry     `json:"entry"`
	Embedding []float32 `json:"embedding"`
}

// SaveCache writes the current index (entries + embeddings) to disk.
func (ix *Index) SaveCache(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var entries []cacheEntry
	for _, item := range ix.entries.Items() {
		hash := item.Key()
		vec, ok := ix.vectors[hash]
		if !ok {
			continue
		}
		entries = append(entries, cacheEntry{
			Hash:      hash,
			Entry:     item.Value(),
			Embedding: vec,
		})
	}

	data, err := json.Marshal(cacheFile{Model: ix.embedder.Model(), Entries: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCache loads a previously saved index from disk. A cache built with
// a different embedding model is silently skipped.
func (ix *Index) LoadCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}
	if cf.Model != ix.embedder.Model() {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	nodes := make([]hnsw.Node[string], 0, len(cf.Entries))
	for _, e := range cf.Entries {
		nodes = append(nodes, hnsw.MakeNode(e.Hash, e.Embedding))
		ix.vectors[e.Hash] = e.Embedding
		ix.entries.Set(e.Hash, e.Entry, ttlcache.DefaultTTL)
	}
	if len(nodes) > 0 {
		ix.graph.Add(nodes...)
	}
	return nil
}

func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}
