// Package openai adapts an OpenAI-compatible API to the domain Embedder and
// Chatter interfaces.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/domain"
	"github.com/opsgrid/sitepulse/internal/metrics"
)

// Client is an AI provider over the OpenAI-compatible API.
type Client struct {
	client     *openai.Client
	embedModel openai.EmbeddingModel
	chatModel  string
	logger     *zap.Logger
}

// Config holds the AI provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration // per-call deadline; <= 0 means defaultTimeout
	Logger     *zap.Logger
}

// defaultTimeout bounds every provider call. The stock go-openai HTTP
// client carries no timeout at all.
const defaultTimeout = 30 * time.Second

// New creates an OpenAI-compatible AI provider.
func New(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		embedModel: openai.EmbeddingModel(cfg.EmbedModel),
		chatModel:  cfg.ChatModel,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. The mode hint has no wire equivalent on
// OpenAI-compatible endpoints and is folded into the input as a short
// prefix, which keeps query and document embeddings distinguishable the way
// providers with a native input_type treat them.
func (c *Client) Embed(ctx context.Context, text string, mode domain.EmbedMode) ([]float64, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{string(mode) + ": " + text},
		Model:          c.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues("embed", string(c.embedModel), "error").Inc()
		return nil, parseAPIError("embedding", err)
	}
	if len(resp.Data) == 0 {
		metrics.AIRequestsTotal.WithLabelValues("embed", string(c.embedModel), "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrAIProvider)
	}

	metrics.AIRequestsTotal.WithLabelValues("embed", string(c.embedModel), "success").Inc()
	metrics.AIRequestDuration.WithLabelValues("embed", string(c.embedModel)).Observe(duration.Seconds())

	vector := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float64(v)
	}
	return vector, nil
}

// Chat implements domain.Chatter. Context documents go into the system
// message; citations are derived afterwards because the API has no native
// citation support: a document counts as cited when its ID appears in the
// answer.
func (c *Client) Chat(ctx context.Context, query string, docs []domain.ChatDocument, maxTokens int) (domain.ChatResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(docs)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues("chat", c.chatModel, "error").Inc()
		return domain.ChatResult{}, parseAPIError("chat", err)
	}
	if len(resp.Choices) == 0 {
		metrics.AIRequestsTotal.WithLabelValues("chat", c.chatModel, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty chat response: %w", domain.ErrAIProvider)
	}

	metrics.AIRequestsTotal.WithLabelValues("chat", c.chatModel, "success").Inc()
	metrics.AIRequestDuration.WithLabelValues("chat", c.chatModel).Observe(duration.Seconds())

	answer := resp.Choices[0].Message.Content
	return domain.ChatResult{
		Text:      answer,
		Citations: deriveCitations(answer, docs),
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func systemPrompt(docs []domain.ChatDocument) string {
	if len(docs) == 0 {
		return "You are a safety compliance assistant for industrial sites. " +
			"Answer concisely and factually."
	}
	var b strings.Builder
	b.WriteString("You are a safety compliance assistant for industrial sites. " +
		"Ground your answer in the reference documents below and mention document " +
		"IDs you rely on.\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", doc.ID, doc.Text)
	}
	return b.String()
}

func deriveCitations(answer string, docs []domain.ChatDocument) []domain.Citation {
	var cites []domain.Citation
	for _, doc := range docs {
		if doc.ID != "" && strings.Contains(answer, doc.ID) {
			cites = append(cites, domain.Citation{DocumentID: doc.ID, Text: doc.Text})
		}
	}
	return cites
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrAIProvider for correct 502 mapping.
func parseAPIError(kind string, err error) error {
	wrap := domain.ErrAIProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w", kind, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
