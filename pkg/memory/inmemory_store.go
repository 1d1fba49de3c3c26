package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a brute-force cosine-similarity VectorStore, adapted from
// AltairaLabs-PromptKit's InMemoryIndex (runtime/statestore/index_memory.go):
// the same linear scan-and-sort search, generalized from per-conversation
// turn indexing to this package's flat Record shape.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore builds an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) All(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *InMemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.AccessCount++
		r.LastAccessed = time.Now()
		s.records[id] = r
	}
	return nil
}

func (s *InMemoryStore) DeleteMany(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Search returns the k nearest records to query by cosine similarity,
// descending by score, same approach as InMemoryIndex.Search.
func (s *InMemoryStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	s.mu.RLock()
	candidates := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		candidates = append(candidates, r)
	}
	s.mu.RUnlock()

	results := make([]SearchResult, 0, len(candidates))
	for _, r := range candidates {
		results = append(results, SearchResult{Record: r, Score: cosineSimilarity(query, r.Vector)})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
