package safety

import (
	"context"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// DocRepo stores the guideline-document corpus used as RAG context.
type DocRepo interface {
	Upsert(ctx context.Context, doc domain.GuidelineDoc) error
	All(ctx context.Context) ([]domain.GuidelineDoc, error)
}

// ImageIndex ranks stored image embeddings against a query vector.
type ImageIndex interface {
	Search(ctx context.Context, query []float64, topK int) ([]domain.SearchHit, error)
}
