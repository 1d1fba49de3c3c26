// Package memory implements the vector-memory subsystem (C5): importance
// weighted storage, pruning, deduplication and similarity search over
// embedded text, grounded primarily on AltairaLabs-PromptKit's
// runtime/statestore/index_memory.go cosine-similarity index.
package memory

import (
	"context"
	"time"
)

// Record is one stored memory: its text, the embedding vector, and the
// bookkeeping fields the pruning and dedup passes need.
type Record struct {
	ID           string
	Text         string
	Source       string
	Vector       []float32
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	Metadata     map[string]string
}

// SearchResult pairs a Record with its similarity score against a query.
type SearchResult struct {
	Record Record
	Score  float64
}

// EmbeddingProvider turns text into vectors. Grounded on
// AltairaLabs-PromptKit's runtime/providers.EmbeddingProvider, narrowed to
// the single batch-embed operation this package needs.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorStore is the persistence and search backend. InMemoryStore is the
// default, dependency-free implementation; a real vector database client can
// satisfy the same interface without changing anything above it.
type VectorStore interface {
	Insert(ctx context.Context, rec Record) error
	All(ctx context.Context) ([]Record, error)
	Touch(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)
}

// Logger is the injected logging sink, structurally identical to
// pkg/listener.Logger so a single concrete logger built in cmd/listener
// satisfies both without either package importing the other.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything; the zero-value default for Service.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...interface{}) {}
func (NoOpLogger) Info(msg string, args ...interface{})  {}
func (NoOpLogger) Warn(msg string, args ...interface{})  {}
func (NoOpLogger) Error(msg string, args ...interface{}) {}

// AddItem is one record to persist via AddBatch.
type AddItem struct {
	Text     string
	Source   string
	Metadata map[string]string
}
