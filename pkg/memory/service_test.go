package memory

import (
	"context"
	"testing"
	"time"
)

// fakeEmbeddingProvider returns a deterministic vector per text: the vector
// mapped to that text in vectors, or {1, 0, 0} for any unmapped text, so
// tests never rely on a real embedding API. A non-nil err fails every call.
type fakeEmbeddingProvider struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbeddingProvider) Dimensions() int { return 3 }

func newTestService(t *testing.T, vectors map[string][]float32, cfg Config) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	provider := &fakeEmbeddingProvider{vectors: vectors}
	pool, err := NewPool(context.Background(), 1, func(ctx context.Context) (EmbeddingProvider, error) {
		return provider, nil
	}, NoOpLogger{})
	if err != nil {
		t.Fatalf("build pool: %v", err)
	}
	return NewService(cfg, store, pool, NoOpLogger{}, 0), store
}

func TestAddRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t, nil, DefaultConfig())
	if _, err := svc.Add(context.Background(), "   ", "mic"); err != ErrEmptyText {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestAddThenQueryFindsRecord(t *testing.T) {
	vectors := map[string][]float32{"remember the wifi password": {1, 0, 0}}
	svc, _ := newTestService(t, vectors, DefaultConfig())

	id, err := svc.Add(context.Background(), "remember the wifi password", "audio")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	results, err := svc.QueryRecords(context.Background(), "remember the wifi password", 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Record.ID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected query to return added record %s, got %+v", id, results)
	}
}

// TestPruneProtectsHighAccessRecords mirrors spec.md §8 scenario S6: with
// keep=2, the unprotected low-access record is deleted and the two
// protected/high-access records survive.
func TestPruneProtectsHighAccessRecords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PruneKeep = 2
	cfg.ProtectedAccessCount = 5
	svc, store := newTestService(t, nil, cfg)

	old := time.Now().Add(-time.Hour)
	recent := time.Now()

	mustInsert := func(id string, access int, ts time.Time) {
		if err := store.Insert(context.Background(), Record{
			ID: id, Text: id, Vector: []float32{1, 0, 0},
			CreatedAt: ts, LastAccessed: ts, AccessCount: access,
		}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	mustInsert("A", 10, old)
	mustInsert("B", 5, old)
	mustInsert("C", 4, recent)

	if err := svc.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make(map[string]bool, len(all))
	for _, r := range all {
		ids[r.ID] = true
	}
	if ids["C"] {
		t.Errorf("expected C deleted, got %+v", ids)
	}
	if !ids["A"] || !ids["B"] {
		t.Errorf("expected A and B retained, got %+v", ids)
	}
}

func TestPruneNeverDeletesProtectedRecordsEvenOverKeep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PruneKeep = 1
	cfg.ProtectedAccessCount = 5
	svc, store := newTestService(t, nil, cfg)

	now := time.Now()
	for _, id := range []string{"P1", "P2", "P3"} {
		if err := store.Insert(context.Background(), Record{
			ID: id, Text: id, Vector: []float32{1, 0, 0},
			CreatedAt: now, LastAccessed: now, AccessCount: 9,
		}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	if err := svc.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	count, _ := store.Count(context.Background())
	if count != 3 {
		t.Errorf("expected all 3 protected records retained, got %d", count)
	}
}

func TestDedupDeletesLowerAccessDuplicate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DupThreshold = 0.9
	svc, store := newTestService(t, nil, cfg)

	now := time.Now()
	if err := store.Insert(context.Background(), Record{
		ID: "dup-low", Text: "hello there", Vector: []float32{1, 0, 0},
		CreatedAt: now, AccessCount: 1,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(context.Background(), Record{
		ID: "dup-high", Text: "hello there friend", Vector: []float32{1, 0.001, 0},
		CreatedAt: now, AccessCount: 9,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := svc.Dedup(context.Background()); err != nil {
		t.Fatalf("dedup: %v", err)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != "dup-high" {
		t.Fatalf("expected only dup-high to survive, got %+v", all)
	}
}

func TestQueryFailureIsNonFatal(t *testing.T) {
	store := NewInMemoryStore()
	provider := &fakeEmbeddingProvider{err: context.DeadlineExceeded}
	pool, err := NewPool(context.Background(), 1, func(ctx context.Context) (EmbeddingProvider, error) {
		return provider, nil
	}, NoOpLogger{})
	if err != nil {
		t.Fatalf("build pool: %v", err)
	}
	svc := NewService(DefaultConfig(), store, pool, NoOpLogger{}, 0)

	results, err := svc.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("expected nil error on query failure, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result on query failure, got %+v", results)
	}
}
