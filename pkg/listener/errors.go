package listener

import "errors"

// Stable error-kind sentinels, named after spec.md §7's cross-language kind
// table so callers can errors.Is against a stable identity regardless of
// which provider produced the failure.
var (
	ErrEmptyInput         = errors.New("empty input")
	ErrModelLoadFailed    = errors.New("model load failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrVADFailed          = errors.New("voice activity detection failed")
	ErrOCRInitFailed      = errors.New("ocr initialization failed")
	ErrOCRExtractFailed   = errors.New("ocr extraction failed")
	ErrLLMNotConfigured   = errors.New("llm provider not configured")
	ErrLLMAPIError        = errors.New("llm api error")
	ErrLLMRateLimited     = errors.New("llm rate limited")
	ErrMemoryStoreFailed  = errors.New("memory store failed")
	ErrMemoryQueryFailed  = errors.New("memory query failed")
	ErrMemoryPoolExhausted = errors.New("memory pool exhausted")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrCancelled          = errors.New("operation cancelled")
	ErrTimeout            = errors.New("operation timed out")
)
