// Package safety implements the compliance-analysis flows: guideline
// document management, RAG-based violation analysis over stored image
// embeddings, and grounded chat.
package safety

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// fallbackSearchQuery is used when the query-derivation chat call fails or
// the provider is unconfigured. Deterministic on purpose.
const fallbackSearchQuery = "safety violations workers without hard hats missing PPE " +
	"protective equipment exposed wiring unauthorized access missing barriers " +
	"thermal hazards electrical hazards"

// fallbackAnalysis is the static report served when no AI provider is
// configured or the provider fails mid-analysis. A degraded answer beats a
// 500 on this endpoint.
const fallbackAnalysis = "AI analysis unavailable. Manual review required: check workers " +
	"for hard hats and PPE, verify safety barriers around restricted areas, and inspect " +
	"for exposed wiring or thermal hazards."

// Service runs the safety-compliance flows.
type Service struct {
	docs     DocRepo
	images   ImageIndex
	embedder domain.Embedder
	chatter  domain.Chatter

	embedModel string
	chatModel  string
	maxTokens  int
	logger     *zap.Logger
}

// New creates a Service. embedder and chatter may be nil; the analysis flow
// then serves its static fallback and chat reports ErrAINotConfigured.
func New(docs DocRepo, images ImageIndex, embedder domain.Embedder, chatter domain.Chatter,
	embedModel, chatModel string, maxTokens int, logger *zap.Logger) *Service {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Service{
		docs:       docs,
		images:     images,
		embedder:   embedder,
		chatter:    chatter,
		embedModel: embedModel,
		chatModel:  chatModel,
		maxTokens:  maxTokens,
		logger:     logger,
	}
}

// UpsertDoc stores or replaces one guideline document chunk.
func (s *Service) UpsertDoc(ctx context.Context, id, text string, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("document_id is required: %w", domain.ErrValidation)
	}
	if text == "" {
		return fmt.Errorf("text is required: %w", domain.ErrValidation)
	}
	return s.docs.Upsert(ctx, domain.GuidelineDoc{ID: id, Text: text, Metadata: metadata})
}

// Status reports whether the AI provider is usable.
func (s *Service) Status() domain.AIStatus {
	return domain.AIStatus{
		Configured: s.configured(),
		EmbedModel: s.embedModel,
		ChatModel:  s.chatModel,
	}
}

func (s *Service) configured() bool {
	return s.embedder != nil && s.chatter != nil
}

// Analyze runs the full RAG flow: derive a violation search query from the
// guideline corpus, rank stored images against it, then chat over the top
// images with the corpus as grounding context. Provider failures degrade to
// the static report; only store failures surface as errors.
func (s *Service) Analyze(ctx context.Context, maxImages int) (domain.SafetyReport, error) {
	if maxImages <= 0 {
		maxImages = 5
	}

	docs, err := s.docs.All(ctx)
	if err != nil {
		return domain.SafetyReport{}, err
	}

	if !s.configured() {
		return s.fallbackReport(fallbackSearchQuery, 0, len(docs)), nil
	}

	query := s.deriveSearchQuery(ctx, docs)

	vector, err := s.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		s.logger.Warn("safety analysis embed failed, serving fallback", zap.Error(err))
		return s.fallbackReport(query, 0, len(docs)), nil
	}

	hits, err := s.images.Search(ctx, vector, maxImages)
	if err != nil {
		return domain.SafetyReport{}, err
	}

	result, err := s.chatter.Chat(ctx, analysisPrompt(hits), toChatDocuments(docs), s.maxTokens)
	if err != nil {
		s.logger.Warn("safety analysis chat failed, serving fallback", zap.Error(err))
		return s.fallbackReport(query, len(hits), len(docs)), nil
	}

	return domain.SafetyReport{
		Analysis:       result.Text,
		SearchQuery:    query,
		ImagesAnalyzed: len(hits),
		DocumentsUsed:  len(docs),
		Citations:      result.Citations,
	}, nil
}

// Chat answers a free-form question grounded in the images most similar to
// it. Unlike Analyze this flow is AI-required: no provider, no answer.
func (s *Service) Chat(ctx context.Context, query string, maxResults int) (domain.ChatAnswer, error) {
	if query == "" {
		return domain.ChatAnswer{}, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if !s.configured() {
		return domain.ChatAnswer{}, domain.ErrAINotConfigured
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	vector, err := s.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		return domain.ChatAnswer{}, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.images.Search(ctx, vector, maxResults)
	if err != nil {
		return domain.ChatAnswer{}, err
	}

	result, err := s.chatter.Chat(ctx, query, hitDocuments(hits), s.maxTokens)
	if err != nil {
		return domain.ChatAnswer{}, fmt.Errorf("chat: %w", err)
	}

	return domain.ChatAnswer{
		Answer:    result.Text,
		Citations: result.Citations,
		Images:    hits,
	}, nil
}

// deriveSearchQuery asks the chat model to condense the guideline corpus
// into an image search query. Any failure falls back to the static query;
// the analysis must not die on this step.
func (s *Service) deriveSearchQuery(ctx context.Context, docs []domain.GuidelineDoc) string {
	if len(docs) == 0 {
		return fallbackSearchQuery
	}

	const prompt = "Based on the safety documentation provided, generate a concise search " +
		"query (2-3 sentences) describing safety violations to look for in industrial " +
		"site images: PPE requirements, barriers, electrical and thermal hazards, " +
		"lockout/tagout."

	result, err := s.chatter.Chat(ctx, prompt, toChatDocuments(docs), 200)
	if err != nil || strings.TrimSpace(result.Text) == "" {
		s.logger.Warn("search query derivation failed, using static query", zap.Error(err))
		return fallbackSearchQuery
	}
	return strings.TrimSpace(result.Text)
}

func (s *Service) fallbackReport(query string, images, docs int) domain.SafetyReport {
	return domain.SafetyReport{
		Analysis:       fallbackAnalysis,
		SearchQuery:    query,
		ImagesAnalyzed: images,
		DocumentsUsed:  docs,
		Fallback:       true,
	}
}

func analysisPrompt(hits []domain.SearchHit) string {
	var b strings.Builder
	b.WriteString("You are a safety compliance expert. Using the safety documentation " +
		"provided, analyze the following site images for violations. For each violation " +
		"name the requirement breached, a risk level, and a corrective action.\n\nImages:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. %s\n", i+1, describeHit(hit))
	}
	return b.String()
}

// toChatDocuments converts guideline chunks into provider context documents.
func toChatDocuments(docs []domain.GuidelineDoc) []domain.ChatDocument {
	out := make([]domain.ChatDocument, len(docs))
	for i, doc := range docs {
		out[i] = domain.ChatDocument{ID: doc.ID, Text: doc.Text}
	}
	return out
}

// hitDocuments converts search hits into provider context documents.
func hitDocuments(hits []domain.SearchHit) []domain.ChatDocument {
	out := make([]domain.ChatDocument, len(hits))
	for i, hit := range hits {
		out[i] = domain.ChatDocument{ID: hit.ID, Text: describeHit(hit)}
	}
	return out
}

// describeHit flattens a hit into a text block for the chat model. Only
// well-known metadata fields are included; everything else stays opaque.
func describeHit(hit domain.SearchHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image ID: %s", hit.ID)
	if site, ok := hit.Metadata["site_id"].(string); ok && site != "" {
		fmt.Fprintf(&b, "\nSite: %s", site)
	}
	if desc, ok := hit.Metadata["description"].(string); ok && desc != "" {
		fmt.Fprintf(&b, "\nDescription: %s", desc)
	}
	return b.String()
}
