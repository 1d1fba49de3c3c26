package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Service is the Vector Memory subsystem (C5): a thread-safe,
// embedding-backed store with similarity query, importance-weighted
// pruning and on-demand deduplication (spec.md §4.9). It is the one
// component in this package that spec.md's MemoryWriter/MemoryReader
// interfaces are actually satisfied by.
type Service struct {
	cfg    Config
	logger Logger
	store  VectorStore
	pool   *Pool

	workerID int
	seq      uint64
}

// NewService wires a Service over store using pool to acquire embedding
// clients. workerID distinguishes concurrently-running Services (e.g. one
// per process) in generated ids; pass 0 for a single-process deployment.
func NewService(cfg Config, store VectorStore, pool *Pool, logger Logger, workerID int) *Service {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Service{cfg: cfg, logger: logger, store: store, pool: pool, workerID: workerID}
}

// nextID assigns `{source}_{ms}_{worker}_{seq}` — source-prefixed and
// time-ordered per spec.md §3's Memory Record id invariant.
func (s *Service) nextID(source string) string {
	seq := atomic.AddUint64(&s.seq, 1)
	return fmt.Sprintf("%s_%d_%d_%d", source, time.Now().UnixMilli(), s.workerID, seq)
}

// Add embeds and stores text, returning its assigned id. Empty or
// whitespace-only text is rejected (spec.md §4.9). If the post-insert count
// exceeds PruneThreshold, importance pruning runs inline before returning.
func (s *Service) Add(ctx context.Context, text, source string) (string, error) {
	return s.AddWithMetadata(ctx, text, source, nil)
}

// AddWithMetadata is Add plus caller-supplied metadata persisted alongside
// the record.
func (s *Service) AddWithMetadata(ctx context.Context, text, source string, metadata map[string]string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}

	client, release, err := s.pool.Acquire(ctx, s.cfg.PoolAcquireTimeout)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMemoryPoolExhausted, err)
	}
	defer release()

	vectors, err := client.Embed(ctx, []string{trimmed})
	if err != nil || len(vectors) == 0 {
		return "", fmt.Errorf("%w: %v", ErrMemoryStoreFailed, err)
	}

	now := time.Now()
	id := s.nextID(source)
	rec := Record{
		ID:           id,
		Text:         trimmed,
		Source:       source,
		Vector:       vectors[0],
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  0,
		Metadata:     metadata,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMemoryStoreFailed, err)
	}

	if count, err := s.store.Count(ctx); err == nil && count > s.cfg.PruneThreshold {
		if err := s.Prune(ctx); err != nil {
			s.logger.Warn("importance pruning failed after add", "error", err)
		}
	}

	return id, nil
}

// AddBatch stores every item, embedding them in a single request where
// possible, and returns one id per item in order. A single pruning check
// runs after the whole batch lands, matching Add's "same semantics in bulk"
// requirement without pruning once per item.
func (s *Service) AddBatch(ctx context.Context, items []AddItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(items))
	valid := make([]int, 0, len(items))
	for i, item := range items {
		trimmed := strings.TrimSpace(item.Text)
		if trimmed == "" {
			continue
		}
		texts = append(texts, trimmed)
		valid = append(valid, i)
	}

	ids := make([]string, len(items))
	if len(texts) == 0 {
		return ids, nil
	}

	client, release, err := s.pool.Acquire(ctx, s.cfg.PoolAcquireTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemoryPoolExhausted, err)
	}
	defer release()

	vectors, err := client.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %v", ErrMemoryStoreFailed, err)
	}

	now := time.Now()
	for j, idx := range valid {
		item := items[idx]
		id := s.nextID(item.Source)
		rec := Record{
			ID:           id,
			Text:         texts[j],
			Source:       item.Source,
			Vector:       vectors[j],
			CreatedAt:    now,
			LastAccessed: now,
			Metadata:     item.Metadata,
		}
		if err := s.store.Insert(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMemoryStoreFailed, err)
		}
		ids[idx] = id
	}

	if count, err := s.store.Count(ctx); err == nil && count > s.cfg.PruneThreshold {
		if err := s.Prune(ctx); err != nil {
			s.logger.Warn("importance pruning failed after add_batch", "error", err)
		}
	}

	return ids, nil
}

// Query returns the top-k documents most similar to text, incrementing
// access_count for every returned record. Query failures are non-fatal per
// spec.md §4.9 — they return an empty slice and a nil error rather than
// bubbling up, so a flaky embedding backend never breaks the caller's
// grounding flow.
func (s *Service) Query(ctx context.Context, text string, k int) ([]string, error) {
	results, err := s.QueryRecords(ctx, text, k)
	if err != nil {
		s.logger.Warn("memory query failed, returning empty result", "error", err)
		return nil, nil
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Record.Text
	}
	return texts, nil
}

// QueryRecords is Query's full-fidelity sibling, returning the SearchResult
// (record + score) instead of bare text, for callers that need metadata.
func (s *Service) QueryRecords(ctx context.Context, text string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = s.cfg.QueryDefaultK
	}

	client, release, err := s.pool.Acquire(ctx, s.cfg.PoolAcquireTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemoryPoolExhausted, err)
	}
	defer release()

	vectors, err := client.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrMemoryQueryFailed, err)
	}

	results, err := s.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemoryQueryFailed, err)
	}

	for _, r := range results {
		if err := s.store.Touch(ctx, r.Record.ID); err != nil {
			s.logger.Warn("access-count update failed", "id", r.Record.ID, "error", err)
		}
	}
	return results, nil
}

// Prune runs spec.md §4.9's importance-weighted pruning pass: records with
// access_count >= ProtectedAccessCount are never eligible; everything else
// is scored by a weighted blend of recency, access frequency and embedding
// uniqueness, and the lowest-scored eligible records are deleted until the
// collection is at most PruneKeep.
func (s *Service) Prune(ctx context.Context) error {
	all, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("list records for pruning: %w", err)
	}
	if len(all) <= s.cfg.PruneKeep {
		return nil
	}

	now := time.Now()
	minCreated := all[0].CreatedAt
	maxAccess := 0
	for _, r := range all {
		if r.CreatedAt.Before(minCreated) {
			minCreated = r.CreatedAt
		}
		if r.AccessCount > maxAccess {
			maxAccess = r.AccessCount
		}
	}
	maxAge := now.Sub(minCreated).Seconds()
	if maxAge <= 0 {
		maxAge = 1
	}
	if maxAccess <= 0 {
		maxAccess = 1
	}

	uniqueness := s.estimateUniqueness(ctx, all)

	type scored struct {
		rec   Record
		score float64
	}
	eligible := make([]scored, 0, len(all))
	for _, r := range all {
		if r.AccessCount >= s.cfg.ProtectedAccessCount {
			continue // protected, never eligible
		}
		age := now.Sub(r.CreatedAt).Seconds()
		recency := 1 - age/maxAge
		access := float64(r.AccessCount) / float64(maxAccess)
		uniq, ok := uniqueness[r.ID]
		if !ok {
			uniq = 1.0
		}
		score := s.cfg.RecencyWeight*recency + s.cfg.AccessWeight*access + s.cfg.UniquenessWeight*uniq
		eligible = append(eligible, scored{rec: r, score: score})
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].score < eligible[j].score })

	toDelete := len(all) - s.cfg.PruneKeep
	if toDelete > len(eligible) {
		toDelete = len(eligible) // protected records may keep the collection above PruneKeep
	}
	if toDelete <= 0 {
		return nil
	}

	ids := make([]string, toDelete)
	for i := 0; i < toDelete; i++ {
		ids[i] = eligible[i].rec.ID
	}
	return s.store.DeleteMany(ctx, ids)
}

// estimateUniqueness samples up to UniquenessSampleSize records and, for
// each, queries its nearest neighbors to derive how crowded its embedding
// neighborhood is (spec.md §4.9's uniqueness term). Records with no neighbor
// past the 1e-3 distance floor get uniqueness=1.0 in the returned map;
// records outside the sample or whose neighbor search fails are left out of
// it, and Prune defaults those to uniqueness=1.0.
func (s *Service) estimateUniqueness(ctx context.Context, all []Record) map[string]float64 {
	sampleSize := s.cfg.UniquenessSampleSize
	if sampleSize <= 0 {
		sampleSize = 1000
	}
	sample := all
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	k := s.cfg.UniquenessNeighborK
	if k <= 0 {
		k = 10
	}
	denom := 1 - s.cfg.ClusterThreshold
	if denom <= 0 {
		denom = 0.25
	}

	out := make(map[string]float64, len(sample))
	for _, r := range sample {
		neighbors, err := s.store.Search(ctx, r.Vector, k+1)
		if err != nil {
			continue
		}
		var sum float64
		var n int
		for _, nb := range neighbors {
			if nb.Record.ID == r.ID {
				continue
			}
			dist := 1 - nb.Score
			if dist > 1e-3 {
				sum += dist
				n++
			}
		}
		if n == 0 {
			out[r.ID] = 1.0
			continue
		}
		avgDist := sum / float64(n)
		u := avgDist / denom
		if u > 1 {
			u = 1
		}
		out[r.ID] = u
	}
	return out
}

// Dedup samples up to DedupSampleSize most-recent records and deletes any
// whose top-k neighbor similarity meets DupThreshold, keeping the
// higher-access_count record of each duplicate pair (older timestamp loses
// ties), per spec.md §4.9.
func (s *Service) Dedup(ctx context.Context) error {
	all, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("list records for dedup: %w", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	sampleSize := s.cfg.DedupSampleSize
	if sampleSize <= 0 {
		sampleSize = 500
	}
	if len(all) > sampleSize {
		all = all[:sampleSize]
	}

	k := s.cfg.DedupNeighborK
	if k <= 0 {
		k = 5
	}

	toDelete := make(map[string]bool)
	for _, r := range all {
		if toDelete[r.ID] {
			continue
		}
		neighbors, err := s.store.Search(ctx, r.Vector, k+1)
		if err != nil {
			s.logger.Warn("duplicate-detection query failed", "id", r.ID, "error", err)
			continue
		}
		for _, nb := range neighbors {
			if nb.Record.ID == r.ID || toDelete[nb.Record.ID] {
				continue
			}
			if nb.Score >= s.cfg.DupThreshold {
				toDelete[pickDuplicateLoser(r, nb.Record)] = true
			}
		}
	}

	if len(toDelete) == 0 {
		return nil
	}
	ids := make([]string, 0, len(toDelete))
	for id := range toDelete {
		ids = append(ids, id)
	}
	return s.store.DeleteMany(ctx, ids)
}

// pickDuplicateLoser returns the id that should be deleted from a duplicate
// pair: the lower access_count record, or the older one on a tie.
func pickDuplicateLoser(a, b Record) string {
	if a.AccessCount != b.AccessCount {
		if a.AccessCount < b.AccessCount {
			return a.ID
		}
		return b.ID
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return a.ID
	}
	return b.ID
}
