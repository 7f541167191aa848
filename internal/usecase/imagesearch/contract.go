package imagesearch

import (
	"context"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// Repo is the embedding-storage surface the search service needs.
type Repo interface {
	Upsert(ctx context.Context, rec domain.EmbeddingRecord) error
	Get(ctx context.Context, id string) (domain.EmbeddingRecord, error)
	All(ctx context.Context) ([]domain.EmbeddingRecord, error)
}
