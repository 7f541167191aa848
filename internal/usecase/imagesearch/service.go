// Package imagesearch ranks stored image embeddings by cosine similarity.
// The scan is linear over the whole corpus; there is no vector index, which
// keeps writes trivial and is fine at the corpus sizes this serves.
package imagesearch

import (
	"context"
	"fmt"
	"sort"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// Service implements vector upsert and similarity search.
type Service struct {
	repo     Repo
	embedder domain.Embedder
}

// New creates a Service. embedder may be nil; text search then reports
// ErrAINotConfigured.
func New(repo Repo, embedder domain.Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// Upsert stores or replaces an embedding record. The vector dimension is
// accepted as-is.
func (s *Service) Upsert(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("image_id is required: %w", domain.ErrValidation)
	}
	if len(vector) == 0 {
		return fmt.Errorf("embedding is required: %w", domain.ErrValidation)
	}
	return s.repo.Upsert(ctx, domain.EmbeddingRecord{ID: id, Vector: vector, Metadata: metadata})
}

// Get returns one stored embedding record by image id.
func (s *Service) Get(ctx context.Context, id string) (domain.EmbeddingRecord, error) {
	if id == "" {
		return domain.EmbeddingRecord{}, fmt.Errorf("image_id is required: %w", domain.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Search scores every stored record against the query vector and returns
// the topK best matches, highest score first. An empty corpus yields an
// empty result, not an error.
func (s *Service) Search(ctx context.Context, query []float64, topK int) ([]domain.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query embedding is required: %w", domain.ErrValidation)
	}
	if topK <= 0 {
		topK = 5
	}

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, domain.SearchHit{
			ID:       rec.ID,
			Score:    cosine(query, rec.Vector),
			Metadata: rec.Metadata,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// SearchText embeds a natural-language query and searches with the result.
func (s *Service) SearchText(ctx context.Context, query string, topK int) ([]domain.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if s.embedder == nil {
		return nil, domain.ErrAINotConfigured
	}

	vector, err := s.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.Search(ctx, vector, topK)
}
