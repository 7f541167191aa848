package domain

// EmbeddingRecord is a stored vector with opaque metadata. The vector
// dimension is whatever the embedding model produced; it is not validated
// at storage time.
type EmbeddingRecord struct {
	ID       string         `json:"image_id"`
	Vector   []float64      `json:"embedding"`
	Metadata map[string]any `json:"metadata"`
}

// SearchHit is one ranked result of a similarity search.
type SearchHit struct {
	ID       string         `json:"image_id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}
