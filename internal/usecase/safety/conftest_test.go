package safety

import (
	"context"

	"github.com/opsgrid/sitepulse/internal/domain"
)

type mockDocRepo struct {
	upsertFn func(ctx context.Context, doc domain.GuidelineDoc) error
	allFn    func(ctx context.Context) ([]domain.GuidelineDoc, error)
}

func (m *mockDocRepo) Upsert(ctx context.Context, doc domain.GuidelineDoc) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, doc)
	}
	return nil
}

func (m *mockDocRepo) All(ctx context.Context) ([]domain.GuidelineDoc, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

type mockImageIndex struct {
	searchFn func(ctx context.Context, query []float64, topK int) ([]domain.SearchHit, error)
}

func (m *mockImageIndex) Search(ctx context.Context, query []float64, topK int) ([]domain.SearchHit, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK)
	}
	return nil, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string, mode domain.EmbedMode) ([]float64, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string, mode domain.EmbedMode) ([]float64, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text, mode)
	}
	return []float64{1, 0}, nil
}

type mockChatter struct {
	chatFn func(ctx context.Context, query string, docs []domain.ChatDocument, maxTokens int) (domain.ChatResult, error)
}

func (m *mockChatter) Chat(ctx context.Context, query string, docs []domain.ChatDocument, maxTokens int) (domain.ChatResult, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, query, docs, maxTokens)
	}
	return domain.ChatResult{Text: "ok"}, nil
}
