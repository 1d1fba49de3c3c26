// Package embedding adapts text-embedding backends to the narrow
// memory.EmbeddingProvider interface. Grounded on
// AltairaLabs-PromptKit/runtime/providers/embedding.go and
// base_embedding.go: same request/response shape, collapsed to the single
// batch-embed method pkg/memory actually calls.
package embedding

import "context"

// Provider turns a batch of texts into one vector per text, in order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}
