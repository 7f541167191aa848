package domain

// GuidelineDoc is a chunk of safety-compliance documentation used as RAG
// context when analyzing site images.
type GuidelineDoc struct {
	ID       string         `json:"document_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// SafetyReport is the outcome of a compliance analysis run. Fallback is set
// when the AI provider was unavailable and the static report was served.
type SafetyReport struct {
	Analysis       string
	SearchQuery    string
	ImagesAnalyzed int
	DocumentsUsed  int
	Citations      []Citation
	Fallback       bool
}

// ChatAnswer is the response to a free-form question about stored images.
type ChatAnswer struct {
	Answer    string
	Citations []Citation
	Images    []SearchHit
}

// AIStatus reports whether the AI provider is usable and with which models.
type AIStatus struct {
	Configured bool
	EmbedModel string
	ChatModel  string
}
