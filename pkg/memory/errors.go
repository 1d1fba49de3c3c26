package memory

import "errors"

// Stable error-kind sentinels, named after spec.md §7's cross-language kind
// table, mirroring pkg/listener/errors.go's naming convention.
var (
	ErrEmptyText          = errors.New("empty input")
	ErrMemoryStoreFailed  = errors.New("memory store failed")
	ErrMemoryQueryFailed  = errors.New("memory query failed")
	ErrMemoryPoolExhausted = errors.New("memory pool exhausted")
)
