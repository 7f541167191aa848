package sitepulse

import (
	"context"

	"github.com/opsgrid/sitepulse/internal/domain"
	searchuc "github.com/opsgrid/sitepulse/internal/usecase/imagesearch"
	ingestuc "github.com/opsgrid/sitepulse/internal/usecase/ingest"
	loguc "github.com/opsgrid/sitepulse/internal/usecase/loganalytics"
	presenceuc "github.com/opsgrid/sitepulse/internal/usecase/presence"
	safetyuc "github.com/opsgrid/sitepulse/internal/usecase/safety"
)

// Event is a single telemetry or user-activity report. For device events
// Category carries the device type; for user events it is fixed by the
// service and the field is ignored.
type Event struct {
	Site      string
	Category  string
	ID        string
	UserID    string
	Timestamp int64 // unix seconds; 0 means "use receipt time"
	Metrics   map[string]float64
}

// Snapshot is the last-known flat field set for a member.
type Snapshot map[string]string

// SiteSummary is the presence view of one site at one point in time.
type SiteSummary struct {
	Site          string
	ActiveCount   int64
	Members       []Snapshot
	LatestMetrics map[string]string
}

// AllSitesSummary aggregates per-site summaries.
type AllSitesSummary struct {
	TotalActive int64
	Sites       []SiteSummary
}

// Image is one stored embedding record.
type Image struct {
	ID       string
	Vector   []float64
	Metadata map[string]any
}

// SearchHit is one ranked result of a similarity search.
type SearchHit struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Citation points a span of an AI answer back at a context document.
type Citation struct {
	DocumentID string
	Text       string
}

// SafetyReport is the outcome of a compliance analysis run.
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

// IPCount is one entry of a top-talkers ranking.
type IPCount struct {
	IP    string
	Count int64
}

// TelemetryService ingests events and answers presence queries for one
// domain (devices or users).
type TelemetryService struct {
	ingest        *ingestuc.Service
	presence      *presenceuc.Service
	fixedCategory string
}

// Ingest records one event: the member becomes active now and its snapshot
// is merged.
func (s *TelemetryService) Ingest(ctx context.Context, evt Event) error {
	category := evt.Category
	if s.fixedCategory != "" {
		category = s.fixedCategory
	}
	return s.ingest.Ingest(ctx, domain.Event{
		Site:      evt.Site,
		Category:  category,
		ID:        evt.ID,
		UserID:    evt.UserID,
		Timestamp: evt.Timestamp,
		Metrics:   evt.Metrics,
	})
}

// Site returns the presence summary for one site. limit <= 0 uses the
// configured default.
func (s *TelemetryService) Site(ctx context.Context, site string, limit int64) (SiteSummary, error) {
	sum, err := s.presence.Site(ctx, site, limit)
	if err != nil {
		return SiteSummary{}, err
	}
	return fromSiteSummary(sum), nil
}

// AllSites returns per-site summaries for every known site.
func (s *TelemetryService) AllSites(ctx context.Context, limit int64) (AllSitesSummary, error) {
	all, err := s.presence.AllSites(ctx, limit)
	if err != nil {
		return AllSitesSummary{}, err
	}
	out := AllSitesSummary{TotalActive: all.TotalActive, Sites: make([]SiteSummary, len(all.Sites))}
	for i, sum := range all.Sites {
		out.Sites[i] = fromSiteSummary(sum)
	}
	return out, nil
}

// ImageService stores image embeddings and runs similarity search.
type ImageService struct {
	svc *searchuc.Service
}

// Upsert stores or replaces an image embedding.
func (s *ImageService) Upsert(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	return s.svc.Upsert(ctx, id, vector, metadata)
}

// Get returns one stored image embedding by id.
func (s *ImageService) Get(ctx context.Context, id string) (Image, error) {
	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return Image{}, err
	}
	return Image{ID: rec.ID, Vector: rec.Vector, Metadata: rec.Metadata}, nil
}

// Search ranks the stored images by cosine similarity to the query vector.
func (s *ImageService) Search(ctx context.Context, vector []float64, topK int) ([]SearchHit, error) {
	hits, err := s.svc.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	return fromSearchHits(hits), nil
}

// SearchText embeds the query text and runs a similarity search. Requires
// a configured AI provider.
func (s *ImageService) SearchText(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	hits, err := s.svc.SearchText(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return fromSearchHits(hits), nil
}

// SafetyService manages guideline documents and runs compliance analysis.
type SafetyService struct {
	svc *safetyuc.Service
}

// UpsertDoc stores or replaces a safety guideline document.
func (s *SafetyService) UpsertDoc(ctx context.Context, id, text string, metadata map[string]any) error {
	return s.svc.UpsertDoc(ctx, id, text, metadata)
}

// Analyze runs the compliance analysis over the stored images. Without a
// configured AI provider it returns the static fallback report.
func (s *SafetyService) Analyze(ctx context.Context, maxImages int) (SafetyReport, error) {
	report, err := s.svc.Analyze(ctx, maxImages)
	if err != nil {
		return SafetyReport{}, err
	}
	return SafetyReport{
		Analysis:       report.Analysis,
		SearchQuery:    report.SearchQuery,
		ImagesAnalyzed: report.ImagesAnalyzed,
		DocumentsUsed:  report.DocumentsUsed,
		Citations:      fromCitations(report.Citations),
		Fallback:       report.Fallback,
	}, nil
}

// Chat answers a free-form question grounded in the stored images and
// guideline documents. Requires a configured AI provider.
func (s *SafetyService) Chat(ctx context.Context, query string, maxResults int) (ChatAnswer, error) {
	answer, err := s.svc.Chat(ctx, query, maxResults)
	if err != nil {
		return ChatAnswer{}, err
	}
	return ChatAnswer{
		Answer:    answer.Answer,
		Citations: fromCitations(answer.Citations),
		Images:    fromSearchHits(answer.Images),
	}, nil
}

// Status reports the AI provider configuration.
func (s *SafetyService) Status() AIStatus {
	st := s.svc.Status()
	return AIStatus{Configured: st.Configured, EmbedModel: st.EmbedModel, ChatModel: st.ChatModel}
}

// LogService ingests access-log lines and ranks error sources.
type LogService struct {
	svc *loguc.Service
}

// IngestLine parses one access-log line and counts it. Returns false when
// the line does not match the expected format; that is not an error.
func (s *LogService) IngestLine(ctx context.Context, line string) (bool, error) {
	return s.svc.IngestLine(ctx, line)
}

// TopIPs returns the client IPs with the most hits for one status code.
func (s *LogService) TopIPs(ctx context.Context, status string, topN int) ([]IPCount, error) {
	top, err := s.svc.TopIPs(ctx, status, topN)
	if err != nil {
		return nil, err
	}
	out := make([]IPCount, len(top))
	for i, e := range top {
		out[i] = IPCount{IP: e.IP, Count: e.Count}
	}
	return out, nil
}

// --- Converters between internal domain types and the public surface ---

func fromSiteSummary(sum domain.SiteSummary) SiteSummary {
	members := make([]Snapshot, len(sum.Members))
	for i, m := range sum.Members {
		members[i] = Snapshot(m)
	}
	return SiteSummary{
		Site:          sum.Site,
		ActiveCount:   sum.ActiveCount,
		Members:       members,
		LatestMetrics: sum.LatestMetrics,
	}
}

func fromSearchHits(hits []domain.SearchHit) []SearchHit {
	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{ID: h.ID, Score: h.Score, Metadata: h.Metadata}
	}
	return out
}

func fromCitations(cits []domain.Citation) []Citation {
	if len(cits) == 0 {
		return nil
	}
	out := make([]Citation, len(cits))
	for i, c := range cits {
		out[i] = Citation{DocumentID: c.DocumentID, Text: c.Text}
	}
	return out
}
