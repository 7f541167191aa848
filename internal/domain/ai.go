package domain

import "context"

// EmbedMode selects the embedding input type the provider should optimize for.
type EmbedMode string

const (
	EmbedQuery    EmbedMode = "search_query"
	EmbedDocument EmbedMode = "search_document"
)

// Embedder turns text into a vector. Implementations are rate-limited and
// fallible; callers must treat every call as a network round trip.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbedMode) ([]float64, error)
}

// ChatDocument is one context document passed to a grounded chat call.
type ChatDocument struct {
	ID   string
	Text string
}

// ChatResult is the answer of a grounded chat call.
type ChatResult struct {
	Text      string
	Citations []Citation
}

// Citation points a span of the answer back at a context document.
type Citation struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// Chatter answers a query grounded in the given context documents.
type Chatter interface {
	Chat(ctx context.Context, query string, docs []ChatDocument, maxTokens int) (ChatResult, error)
}
