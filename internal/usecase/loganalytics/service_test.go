package loganalytics

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/opsgrid/sitepulse/internal/domain"
)

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

func TestIngestLine_ParsesCommonFormat(t *testing.T) {
	mc := &mockCounters{}
	var gotKey, gotField string
	var gotIncr int64
	mc.hincrByFn = func(_ context.Context, key, field string, incr int64) error {
		gotKey, gotField, gotIncr = key, field, incr
		return nil
	}
	svc := New(mc, "")

	line := `203.0.113.9 - - [12/Aug/2026:10:01:44 +0000] "GET /sre/status HTTP/1.1" 404 152 "-" "curl/8.5"`
	matched, err := svc.IngestLine(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("expected line to match")
	}
	if gotKey != "logs:status:404:by_ip" {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotField != "203.0.113.9" || gotIncr != 1 {
		t.Errorf("unexpected increment %s by %d", gotField, gotIncr)
	}
}

func TestIngestLine_GarbageDroppedSilently(t *testing.T) {
	mc := &mockCounters{}
	mc.hincrByFn = func(_ context.Context, _, _ string, _ int64) error {
		t.Fatal("unparseable line must not be counted")
		return nil
	}
	svc := New(mc, "")

	matched, err := svc.IngestLine(context.Background(), "not a log line at all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatal("expected no match")
	}
}

func TestIngestLine_StoreError(t *testing.T) {
	mc := &mockCounters{}
	mc.hincrByFn = func(_ context.Context, _, _ string, _ int64) error {
		return errors.New("connection refused")
	}
	svc := New(mc, "")

	_, err := svc.IngestLine(context.Background(), `10.0.0.1 - - [x] "GET /a" 500 0`)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestTopIPs_SortedAndTruncated(t *testing.T) {
	mc := &mockCounters{}
	mc.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "logs:status:400:by_ip" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"10.0.0.1": "3",
			"10.0.0.2": "12",
			"10.0.0.3": "3",
			"10.0.0.4": "1",
		}, nil
	}
	svc := New(mc, "")

	top, err := svc.TopIPs(context.Background(), "400", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []IPCount{
		{IP: "10.0.0.2", Count: 12},
		{IP: "10.0.0.1", Count: 3},
		{IP: "10.0.0.3", Count: 3},
	}
	if !reflect.DeepEqual(top, want) {
		t.Fatalf("unexpected ranking: %+v", top)
	}
}

func TestTopIPs_EmptyHash(t *testing.T) {
	svc := New(&mockCounters{}, "")
	top, err := svc.TopIPs(context.Background(), "400", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected empty ranking, got %+v", top)
	}
}

func TestTopIPs_CorruptCounter(t *testing.T) {
	mc := &mockCounters{}
	mc.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"10.0.0.1": "lots"}, nil
	}
	svc := New(mc, "")

	if _, err := svc.TopIPs(context.Background(), "400", 10); err == nil {
		t.Fatal("expected error for non-numeric counter")
	}
}
