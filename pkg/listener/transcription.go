package listener

import (
	"context"
	"fmt"
	"sync"
)

// TranscriptionWorker serializes calls into a single STTProvider. Spec.md
// §3/§8 require exactly one in-flight STT call at a time because the model
// backing most providers is not re-entrant; a single held mutex enforces
// that, split into its own type since C2 and C3 are distinct components
// here.
type TranscriptionWorker struct {
	provider STTProvider
	mu       sync.Mutex
}

// NewTranscriptionWorker wraps provider with single-flight serialization.
func NewTranscriptionWorker(provider STTProvider) *TranscriptionWorker {
	return &TranscriptionWorker{provider: provider}
}

// Transcribe runs pcm through the wrapped provider. Only one call across all
// goroutines executes at a time; others block on the mutex until it is free,
// with no guarantee that they proceed in call order.
func (w *TranscriptionWorker) Transcribe(ctx context.Context, pcm []float32, lang string) (string, float64, error) {
	if len(pcm) == 0 {
		return "", 0, ErrEmptyInput
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	text, confidence, err := w.provider.Transcribe(ctx, pcm, lang)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return text, confidence, nil
}
