// Package chi implements the HTTP facade: hand-written handlers on the chi
// router, sentinel-to-status error mapping, and bearer auth.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/domain"
	"github.com/opsgrid/sitepulse/internal/version"

	healthuc "github.com/opsgrid/sitepulse/internal/usecase/health"
	ingestuc "github.com/opsgrid/sitepulse/internal/usecase/ingest"
	searchuc "github.com/opsgrid/sitepulse/internal/usecase/imagesearch"
	loguc "github.com/opsgrid/sitepulse/internal/usecase/loganalytics"
	presenceuc "github.com/opsgrid/sitepulse/internal/usecase/presence"
	safetyuc "github.com/opsgrid/sitepulse/internal/usecase/safety"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the use case services behind the /sre API.
type Server struct {
	deviceIngest  *ingestuc.Service
	userIngest    *ingestuc.Service
	devices       *presenceuc.Service
	users         *presenceuc.Service
	images        *searchuc.Service
	safety        *safetyuc.Service
	logs          *loguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	deviceIngest, userIngest *ingestuc.Service,
	devices, users *presenceuc.Service,
	images *searchuc.Service,
	safety *safetyuc.Service,
	logs *loguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		deviceIngest: deviceIngest,
		userIngest:   userIngest,
		devices:      devices,
		users:        users,
		images:       images,
		safety:       safety,
		logs:         logs,
		health:       health,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrAINotConfigured, http.StatusServiceUnavailable, "ai_unavailable"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"),
		sentinelHandler(domain.ErrAIProvider, http.StatusBadGateway, "ai_provider_error"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
	}
	return s
}

// Routes mounts every handler on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/sre", func(r chi.Router) {
		r.Post("/devices/ingest", s.ingestDevice)
		r.Get("/active-devices", s.activeDevices)
		r.Post("/users/ingest", s.ingestUser)
		r.Get("/active-users", s.activeUsers)

		r.Post("/images/upsert", s.upsertImage)
		r.Get("/images/{image_id}", s.getImage)
		r.Post("/images/search", s.searchImages)
		r.Post("/images/search-nl", s.searchImagesNL)
		r.Post("/images/safety-analysis", s.safetyAnalysis)
		r.Post("/images/chat", s.imageChat)
		r.Get("/images/cohere-status", s.aiStatus)
		r.Post("/safety/docs", s.upsertSafetyDoc)

		r.Post("/logs/ingest-line", s.ingestLogLine)
		r.Post("/logs/top-ips", s.topIPs)

		r.Get("/status", s.status)
	})
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
}

// --- Telemetry ---

type deviceEventRequest struct {
	SiteID     string             `json:"site_id"`
	DeviceType string             `json:"device_type"`
	DeviceID   string             `json:"device_id"`
	Timestamp  int64              `json:"ts,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

func (s *Server) ingestDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	err := s.deviceIngest.Ingest(r.Context(), domain.Event{
		Site:      req.SiteID,
		Category:  req.DeviceType,
		ID:        req.DeviceID,
		Timestamp: req.Timestamp,
		Metrics:   req.Metrics,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type userEventRequest struct {
	SiteID    string             `json:"site_id"`
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Timestamp int64              `json:"ts,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

func (s *Server) ingestUser(w http.ResponseWriter, r *http.Request) {
	var req userEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	err := s.userIngest.Ingest(r.Context(), domain.Event{
		Site:      req.SiteID,
		Category:  domain.CategoryUser,
		ID:        req.SessionID,
		Timestamp: req.Timestamp,
		UserID:    req.UserID,
		Metrics:   req.Metrics,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Presence queries ---

type siteSummaryResponse struct {
	SiteID        string            `json:"site_id"`
	ActiveCount   int64             `json:"active_count"`
	Members       []domain.Snapshot `json:"members"`
	LatestMetrics map[string]string `json:"latest_site_metrics,omitempty"`
}

type allSitesResponse struct {
	TotalActive int64                 `json:"total_active"`
	Sites       []siteSummaryResponse `json:"sites"`
}

func (s *Server) activeDevices(w http.ResponseWriter, r *http.Request) {
	s.activePresence(w, r, s.devices)
}

func (s *Server) activeUsers(w http.ResponseWriter, r *http.Request) {
	s.activePresence(w, r, s.users)
}

func (s *Server) activePresence(w http.ResponseWriter, r *http.Request, svc *presenceuc.Service) {
	var siteID *string
	if err := runtime.BindQueryParameter("form", true, false, "site_id", r.URL.Query(), &siteID); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid site_id: "+err.Error())
		return
	}
	var limit *int64
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid limit: "+err.Error())
		return
	}

	var lim int64
	if limit != nil {
		lim = *limit
	}

	if siteID != nil && *siteID != "" {
		sum, err := svc.Site(r.Context(), *siteID, lim)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, siteToResponse(sum))
		return
	}

	all, err := svc.AllSites(r.Context(), lim)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sites := make([]siteSummaryResponse, len(all.Sites))
	for i, sum := range all.Sites {
		sites[i] = siteToResponse(sum)
	}
	writeJSON(w, http.StatusOK, allSitesResponse{TotalActive: all.TotalActive, Sites: sites})
}

func siteToResponse(sum domain.SiteSummary) siteSummaryResponse {
	members := sum.Members
	if members == nil {
		members = []domain.Snapshot{}
	}
	return siteSummaryResponse{
		SiteID:        sum.Site,
		ActiveCount:   sum.ActiveCount,
		Members:       members,
		LatestMetrics: sum.LatestMetrics,
	}
}

// --- Image search ---

type upsertImageRequest struct {
	ImageID   string         `json:"image_id"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (s *Server) upsertImage(w http.ResponseWriter, r *http.Request) {
	var req upsertImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if err := s.images.Upsert(r.Context(), req.ImageID, req.Embedding, req.Metadata); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.images.Get(r.Context(), chi.URLParam(r, "image_id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type searchImagesRequest struct {
	QueryEmbedding []float64 `json:"query_embedding"`
	TopK           int       `json:"top_k,omitempty"`
}

func (s *Server) searchImages(w http.ResponseWriter, r *http.Request) {
	var req searchImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	hits, err := s.images.Search(r.Context(), req.QueryEmbedding, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hitsOrEmpty(hits)})
}

type searchImagesNLRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func (s *Server) searchImagesNL(w http.ResponseWriter, r *http.Request) {
	var req searchImagesNLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	hits, err := s.images.SearchText(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": hitsOrEmpty(hits)})
}

func hitsOrEmpty(hits []domain.SearchHit) []domain.SearchHit {
	if hits == nil {
		return []domain.SearchHit{}
	}
	return hits
}

// --- Safety compliance ---

type safetyAnalysisRequest struct {
	MaxImages int `json:"max_images,omitempty"`
}

type safetyAnalysisResponse struct {
	Analysis       string            `json:"analysis"`
	SearchQuery    string            `json:"search_query"`
	ImagesAnalyzed int               `json:"images_analyzed"`
	DocumentsUsed  int               `json:"documents_used"`
	Citations      []domain.Citation `json:"citations,omitempty"`
	Fallback       bool              `json:"fallback"`
}

func (s *Server) safetyAnalysis(w http.ResponseWriter, r *http.Request) {
	var req safetyAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	report, err := s.safety.Analyze(r.Context(), req.MaxImages)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, safetyAnalysisResponse{
		Analysis:       report.Analysis,
		SearchQuery:    report.SearchQuery,
		ImagesAnalyzed: report.ImagesAnalyzed,
		DocumentsUsed:  report.DocumentsUsed,
		Citations:      report.Citations,
		Fallback:       report.Fallback,
	})
}

type imageChatRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

func (s *Server) imageChat(w http.ResponseWriter, r *http.Request) {
	var req imageChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	answer, err := s.safety.Chat(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":    answer.Answer,
		"citations": answer.Citations,
		"images":    hitsOrEmpty(answer.Images),
	})
}

func (s *Server) aiStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.safety.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"configured":  st.Configured,
		"embed_model": st.EmbedModel,
		"chat_model":  st.ChatModel,
	})
}

type safetyDocRequest struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (s *Server) upsertSafetyDoc(w http.ResponseWriter, r *http.Request) {
	var req safetyDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if err := s.safety.UpsertDoc(r.Context(), req.DocumentID, req.Text, req.Metadata); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Log analytics ---

type logLineRequest struct {
	Line string `json:"line"`
}

func (s *Server) ingestLogLine(w http.ResponseWriter, r *http.Request) {
	var req logLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	matched, err := s.logs.IngestLine(r.Context(), req.Line)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "matched": matched})
}

type topIPsRequest struct {
	StatusCode string `json:"status_code"`
	TopN       int    `json:"top_n,omitempty"`
}

func (s *Server) topIPs(w http.ResponseWriter, r *http.Request) {
	req := topIPsRequest{StatusCode: "400", TopN: 10}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	top, err := s.logs.TopIPs(r.Context(), req.StatusCode, req.TopN)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if top == nil {
		top = []loguc.IPCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": req.StatusCode, "top": top})
}

// --- Service meta ---

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "sitepulse",
		"version": version.Version,
		"commit":  version.Commit,
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Error plumbing ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrAINotConfigured,
		domain.ErrStoreUnavailable,
		domain.ErrAIProvider,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
