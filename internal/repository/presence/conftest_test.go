package presence

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	zaddGTFn           func(ctx context.Context, key string, score float64, member string) error
	zcountFn           func(ctx context.Context, key string, min, max float64) (int64, error)
	zrevRangeFn        func(ctx context.Context, key string, max, min float64, limit int64) ([]string, error)
	zremRangeFn        func(ctx context.Context, key string, min, max float64) (int64, error)
	hsetFn             func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn          func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn     func(ctx context.Context, keys []string) ([]map[string]string, error)
	scanFn             func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) ZAddGT(ctx context.Context, key string, score float64, member string) error {
	if m.zaddGTFn != nil {
		return m.zaddGTFn(ctx, key, score, member)
	}
	return nil
}

func (m *mockStore) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	if m.zcountFn != nil {
		return m.zcountFn(ctx, key, min, max)
	}
	return 0, nil
}

func (m *mockStore) ZRevRangeByScore(ctx context.Context, key string, max, min float64, limit int64) ([]string, error) {
	if m.zrevRangeFn != nil {
		return m.zrevRangeFn(ctx, key, max, min, limit)
	}
	return nil, nil
}

func (m *mockStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	if m.zremRangeFn != nil {
		return m.zremRangeFn(ctx, key, min, max)
	}
	return 0, nil
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestWindow(t *testing.T) (*Window, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return Devices(ms, ""), ms
}
