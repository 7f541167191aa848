// Package sitepulse is the embedded SDK: it wires the presence, image
// search, safety and log-analytics services directly over a Redis store, so
// a Go program can use the full feature set without going through the HTTP
// API.
package sitepulse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/opsgrid/sitepulse/internal/db/redis"
	"github.com/opsgrid/sitepulse/internal/domain"
	"github.com/opsgrid/sitepulse/internal/metrics"
	embeddingrepo "github.com/opsgrid/sitepulse/internal/repository/embedding"
	guidelinerepo "github.com/opsgrid/sitepulse/internal/repository/guideline"
	presencerepo "github.com/opsgrid/sitepulse/internal/repository/presence"
	openaiTransport "github.com/opsgrid/sitepulse/internal/transport/openai"
	searchuc "github.com/opsgrid/sitepulse/internal/usecase/imagesearch"
	ingestuc "github.com/opsgrid/sitepulse/internal/usecase/ingest"
	loguc "github.com/opsgrid/sitepulse/internal/usecase/loganalytics"
	presenceuc "github.com/opsgrid/sitepulse/internal/usecase/presence"
	safetyuc "github.com/opsgrid/sitepulse/internal/usecase/safety"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the sitepulse SDK entry point.
type Client struct {
	store *dbRedis.Store

	deviceIngest   *ingestuc.Service
	userIngest     *ingestuc.Service
	devicePresence *presenceuc.Service
	userPresence   *presenceuc.Service
	imageSvc       *searchuc.Service
	safetySvc      *safetyuc.Service
	logSvc         *loguc.Service
}

// New creates a sitepulse Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		deviceWindowSec: 120,
		userWindowSec:   120,
		deviceListLimit: 20,
		userListLimit:   50,
		aiEmbedModel:    "text-embedding-3-small",
		aiChatModel:     "gpt-4o-mini",
		aiMaxTokens:     800,
		logger:          zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("sitepulse: store address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("sitepulse: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("sitepulse: store not ready: %w", err)
	}

	metrics.RegisterTelemetryMetrics()

	return wireClient(store, cfg), nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) *Client {
	deviceWindow := presencerepo.Devices(store, cfg.keyPrefix)
	userWindow := presencerepo.Users(store, cfg.keyPrefix)
	imageRepo := embeddingrepo.New(store, cfg.keyPrefix)
	docRepo := guidelinerepo.New(store, cfg.keyPrefix)

	// Nil interfaces (not typed nil pointers) when AI is not configured.
	var embedder domain.Embedder
	var chatter domain.Chatter
	if cfg.aiAPIKey != "" {
		ai := openaiTransport.New(&openaiTransport.Config{
			APIKey:     cfg.aiAPIKey,
			BaseURL:    cfg.aiBaseURL,
			EmbedModel: cfg.aiEmbedModel,
			ChatModel:  cfg.aiChatModel,
			Timeout:    cfg.aiTimeout,
			Logger:     cfg.logger,
		})
		embedder = ai
		chatter = ai
	}

	imageSvc := searchuc.New(imageRepo, embedder)

	return &Client{
		store:          store,
		deviceIngest:   ingestuc.NewDevices(deviceWindow, cfg.deviceWindowSec, cfg.logger),
		userIngest:     ingestuc.NewUsers(userWindow, cfg.userWindowSec, cfg.logger),
		devicePresence: presenceuc.NewDevices(deviceWindow, cfg.deviceWindowSec, cfg.deviceListLimit),
		userPresence:   presenceuc.NewUsers(userWindow, cfg.userWindowSec, cfg.userListLimit),
		imageSvc:       imageSvc,
		safetySvc: safetyuc.New(docRepo, imageSvc, embedder, chatter,
			cfg.aiEmbedModel, cfg.aiChatModel, cfg.aiMaxTokens, cfg.logger),
		logSvc: loguc.New(store, cfg.keyPrefix),
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Devices returns the device telemetry service.
func (c *Client) Devices() *TelemetryService {
	return &TelemetryService{ingest: c.deviceIngest, presence: c.devicePresence}
}

// Users returns the user activity service.
func (c *Client) Users() *TelemetryService {
	return &TelemetryService{
		ingest:        c.userIngest,
		presence:      c.userPresence,
		fixedCategory: domain.CategoryUser,
	}
}

// Images returns the image similarity search service.
func (c *Client) Images() *ImageService {
	return &ImageService{svc: c.imageSvc}
}

// Safety returns the safety compliance service.
func (c *Client) Safety() *SafetyService {
	return &SafetyService{svc: c.safetySvc}
}

// Logs returns the access-log analytics service.
func (c *Client) Logs() *LogService {
	return &LogService{svc: c.logSvc}
}
