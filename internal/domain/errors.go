package domain

import "errors"

// Sentinel errors shared across layers. Transport maps these to HTTP status codes.
var (
	// ErrValidation marks a malformed event or request, rejected before any store write.
	ErrValidation = errors.New("sitepulse: validation failed")

	// ErrStoreUnavailable marks a transient failure talking to the key-value store.
	// Safe for the caller to retry; never retried silently inside the core.
	ErrStoreUnavailable = errors.New("sitepulse: store unavailable")

	// ErrAINotConfigured marks a request that needs the AI provider when none is configured.
	ErrAINotConfigured = errors.New("sitepulse: ai provider not configured")

	// ErrAIProvider marks a failure returned by the AI provider.
	ErrAIProvider = errors.New("sitepulse: ai provider error")

	// ErrNotFound marks a missing record where absence is exceptional (embeddings,
	// guideline docs). Presence queries never return it: an unknown site is an
	// empty summary, not an error.
	ErrNotFound = errors.New("sitepulse: not found")
)
