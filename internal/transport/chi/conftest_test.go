package chi

import (
	"context"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/domain"
	healthuc "github.com/opsgrid/sitepulse/internal/usecase/health"
	ingestuc "github.com/opsgrid/sitepulse/internal/usecase/ingest"
	searchuc "github.com/opsgrid/sitepulse/internal/usecase/imagesearch"
	loguc "github.com/opsgrid/sitepulse/internal/usecase/loganalytics"
	presenceuc "github.com/opsgrid/sitepulse/internal/usecase/presence"
	safetyuc "github.com/opsgrid/sitepulse/internal/usecase/safety"
)

// --- Store-side mocks shared by the handler tests ---

type mockWindow struct {
	touchFn          func(ctx context.Context, site, memberKey string, seen int64, fields map[string]string) error
	evictFn          func(ctx context.Context, site string, cutoff int64) (int64, error)
	setSiteMetricsFn func(ctx context.Context, site string, fields map[string]string) error
	countActiveFn    func(ctx context.Context, site string, windowStart, now int64) (int64, error)
	listActiveFn     func(ctx context.Context, site string, windowStart, now, limit int64) ([]string, error)
	snapshotsFn      func(ctx context.Context, memberKeys []string) ([]domain.Snapshot, error)
	siteMetricsFn    func(ctx context.Context, site string) (map[string]string, error)
	discoverSitesFn  func(ctx context.Context) ([]string, error)
}

func (m *mockWindow) Touch(ctx context.Context, site, memberKey string, seen int64, fields map[string]string) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, site, memberKey, seen, fields)
	}
	return nil
}

func (m *mockWindow) EvictOlderThan(ctx context.Context, site string, cutoff int64) (int64, error) {
	if m.evictFn != nil {
		return m.evictFn(ctx, site, cutoff)
	}
	return 0, nil
}

func (m *mockWindow) SetSiteMetrics(ctx context.Context, site string, fields map[string]string) error {
	if m.setSiteMetricsFn != nil {
		return m.setSiteMetricsFn(ctx, site, fields)
	}
	return nil
}

func (m *mockWindow) CountActive(ctx context.Context, site string, windowStart, now int64) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx, site, windowStart, now)
	}
	return 0, nil
}

func (m *mockWindow) ListActive(ctx context.Context, site string, windowStart, now, limit int64) ([]string, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, site, windowStart, now, limit)
	}
	return nil, nil
}

func (m *mockWindow) Snapshots(ctx context.Context, memberKeys []string) ([]domain.Snapshot, error) {
	if m.snapshotsFn != nil {
		return m.snapshotsFn(ctx, memberKeys)
	}
	return make([]domain.Snapshot, len(memberKeys)), nil
}

func (m *mockWindow) SiteMetrics(ctx context.Context, site string) (map[string]string, error) {
	if m.siteMetricsFn != nil {
		return m.siteMetricsFn(ctx, site)
	}
	return nil, nil
}

func (m *mockWindow) DiscoverSites(ctx context.Context) ([]string, error) {
	if m.discoverSitesFn != nil {
		return m.discoverSitesFn(ctx)
	}
	return nil, nil
}

type mockEmbeddingRepo struct {
	upsertFn func(ctx context.Context, rec domain.EmbeddingRecord) error
	getFn    func(ctx context.Context, id string) (domain.EmbeddingRecord, error)
	allFn    func(ctx context.Context) ([]domain.EmbeddingRecord, error)
}

func (m *mockEmbeddingRepo) Upsert(ctx context.Context, rec domain.EmbeddingRecord) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, rec)
	}
	return nil
}

func (m *mockEmbeddingRepo) Get(ctx context.Context, id string) (domain.EmbeddingRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.EmbeddingRecord{}, nil
}

func (m *mockEmbeddingRepo) All(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

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

type mockCounters struct {
	hincrByFn func(ctx context.Context, key, field string, incr int64) error
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
}

func (m *mockCounters) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	if m.hincrByFn != nil {
		return m.hincrByFn(ctx, key, field, incr)
	}
	return nil
}

func (m *mockCounters) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// testDeps bundles every mock behind a test server.
type testDeps struct {
	devices  *mockWindow
	users    *mockWindow
	images   *mockEmbeddingRepo
	docs     *mockDocRepo
	counters *mockCounters
	pinger   *mockPinger
}

// newTestServer wires real use case services over the mocks and mounts the
// full route tree, the same shape main builds.
func newTestServer(t *testing.T) (*httptest.Server, *testDeps) {
	t.Helper()

	deps := &testDeps{
		devices:  &mockWindow{},
		users:    &mockWindow{},
		images:   &mockEmbeddingRepo{},
		docs:     &mockDocRepo{},
		counters: &mockCounters{},
		pinger:   &mockPinger{},
	}
	logger := zap.NewNop()

	imageSvc := searchuc.New(deps.images, nil)
	srv := NewServer(
		ingestuc.NewDevices(deps.devices, 120, logger),
		ingestuc.NewUsers(deps.users, 120, logger),
		presenceuc.NewDevices(deps.devices, 120, 20),
		presenceuc.NewUsers(deps.users, 120, 50),
		imageSvc,
		safetyuc.New(deps.docs, imageSvc, nil, nil, "", "", 800, logger),
		loguc.New(deps.counters, ""),
		healthuc.New(deps.pinger, nil),
		logger,
	)

	r := chirouter.NewRouter()
	srv.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, deps
}
