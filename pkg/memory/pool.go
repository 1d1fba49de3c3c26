package memory

import (
	"context"
	"fmt"
	"time"
)

// Pool is a bounded pool of reusable embedding-client connections. Acquire
// blocks up to the configured timeout for a pooled client; on timeout it
// falls back to an ephemeral, unpooled client from factory rather than
// failing the caller outright (spec.md §4.5's pool semantics).
type Pool struct {
	factory func(ctx context.Context) (EmbeddingProvider, error)
	slots   chan EmbeddingProvider
	logger  Logger
}

// NewPool eagerly fills size slots by calling factory once per slot.
func NewPool(ctx context.Context, size int, factory func(ctx context.Context) (EmbeddingProvider, error), logger Logger) (*Pool, error) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	p := &Pool{factory: factory, slots: make(chan EmbeddingProvider, size), logger: logger}
	for i := 0; i < size; i++ {
		client, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("pool: build client %d/%d: %w", i+1, size, err)
		}
		p.slots <- client
	}
	return p, nil
}

// Acquire returns a pooled client and a release func. If no pooled client
// becomes available within timeout, it builds an ephemeral client directly
// from factory instead of blocking indefinitely or failing outright; the
// release func for an ephemeral client is a no-op.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (EmbeddingProvider, func(), error) {
	select {
	case client := <-p.slots:
		return client, func() { p.slots <- client }, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case client := <-p.slots:
		return client, func() { p.slots <- client }, nil
	case <-timer.C:
		p.logger.Warn("embedding pool exhausted, building ephemeral client")
		client, err := p.factory(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("pool exhausted, ephemeral fallback failed: %w", err)
		}
		return client, func() {}, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
