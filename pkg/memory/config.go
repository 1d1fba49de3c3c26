package memory

import "time"

// Config enumerates the memory knobs spec.md §6 names, with the same
// defaults (query_default_k=5, prune_threshold=10000, prune_keep=5000,
// protected_access_count=5, recency/access/uniqueness weights, dup/cluster
// thresholds, pool_size=3).
type Config struct {
	QueryDefaultK int

	PruneThreshold       int
	PruneKeep            int
	ProtectedAccessCount int
	RecencyWeight        float64
	AccessWeight         float64
	UniquenessWeight     float64
	ClusterThreshold     float64

	UniquenessSampleSize int
	UniquenessNeighborK  int

	DupThreshold    float64
	DedupSampleSize int
	DedupNeighborK  int

	PoolSize           int
	PoolAcquireTimeout time.Duration
}

// DefaultConfig returns spec.md §6's stated memory defaults.
func DefaultConfig() Config {
	return Config{
		QueryDefaultK: 5,

		PruneThreshold:       10000,
		PruneKeep:            5000,
		ProtectedAccessCount: 5,
		RecencyWeight:        0.25,
		AccessWeight:         0.5,
		UniquenessWeight:     0.25,
		ClusterThreshold:     0.75,

		UniquenessSampleSize: 1000,
		UniquenessNeighborK:  10,

		DupThreshold:    0.92,
		DedupSampleSize: 500,
		DedupNeighborK:  5,

		PoolSize:           3,
		PoolAcquireTimeout: 2 * time.Second,
	}
}
