// Package presence implements the windowed presence store: a per-site,
// time-ordered membership index with hash snapshots per member.
//
// Eviction is eager and opportunistic: it runs on ingest for the written
// site only. A site that stops receiving events keeps its stale members in
// the index until another event for that site arrives. That quirk is part
// of the observable contract; do not "fix" it with a background sweep.
package presence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// store is the consumer interface for the presence window (ISP).
type store interface {
	ZAddGT(ctx context.Context, key string, score float64, member string) error
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)
	ZRevRangeByScore(ctx context.Context, key string, max, min float64, limit int64) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Window is a windowed presence store for one domain (devices or users).
// All state lives in the shared key-value store; the store's per-key
// atomicity is the concurrency boundary.
type Window struct {
	store          store
	indexPrefix    string // sorted set per site: <indexPrefix><site>
	snapshotPrefix string // hash per member: <snapshotPrefix><memberKey>
	metricsPrefix  string // optional per-site rollup hash, user domain only
}

// Devices creates the presence window for device telemetry.
func Devices(s store, keyPrefix string) *Window {
	return &Window{
		store:          s,
		indexPrefix:    keyPrefix + "devices:active:site:",
		snapshotPrefix: keyPrefix + "device:",
	}
}

// Users creates the presence window for user sessions.
func Users(s store, keyPrefix string) *Window {
	return &Window{
		store:          s,
		indexPrefix:    keyPrefix + "users:active:site:",
		snapshotPrefix: keyPrefix + "user:session:",
		metricsPrefix:  keyPrefix + "users:metrics:site:",
	}
}

// Touch records that memberKey under site was seen at the given unix-second
// timestamp and merges fields into the member snapshot (field-level
// overwrite, absent fields preserved). Membership is written before the
// snapshot; concurrent touches converge on the greatest timestamp
// regardless of arrival order.
func (w *Window) Touch(ctx context.Context, site, memberKey string, seen int64, fields map[string]string) error {
	if err := w.store.ZAddGT(ctx, w.indexKey(site), float64(seen), memberKey); err != nil {
		return fmt.Errorf("touch index %s: %w: %w", memberKey, domain.ErrStoreUnavailable, err)
	}
	if len(fields) > 0 {
		if err := w.store.HSet(ctx, w.snapshotKey(memberKey), fields); err != nil {
			return fmt.Errorf("touch snapshot %s: %w: %w", memberKey, domain.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// EvictOlderThan removes members with lastSeen strictly before cutoff from
// the site's membership index. Snapshots are untouched. Idempotent; returns
// the number of members removed. Timestamps are whole seconds, so
// "< cutoff" is "<= cutoff-1".
func (w *Window) EvictOlderThan(ctx context.Context, site string, cutoff int64) (int64, error) {
	n, err := w.store.ZRemRangeByScore(ctx, w.indexKey(site), 0, float64(cutoff-1))
	if err != nil {
		return 0, fmt.Errorf("evict %s: %w: %w", site, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// CountActive counts members seen within [windowStart, now]. The count
// always reflects the full window, independent of any listing limit.
func (w *Window) CountActive(ctx context.Context, site string, windowStart, now int64) (int64, error) {
	n, err := w.store.ZCount(ctx, w.indexKey(site), float64(windowStart), float64(now))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w: %w", site, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// ListActive returns up to limit member keys seen within [windowStart, now],
// most recently seen first. Ordering across equal timestamps follows the
// index and is stable within one query.
func (w *Window) ListActive(ctx context.Context, site string, windowStart, now, limit int64) ([]string, error) {
	members, err := w.store.ZRevRangeByScore(ctx, w.indexKey(site), float64(now), float64(windowStart), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", site, domain.ErrStoreUnavailable, err)
	}
	return members, nil
}

// Snapshot returns the last known snapshot for a member; empty if never
// recorded. Absence is not an error.
func (w *Window) Snapshot(ctx context.Context, memberKey string) (domain.Snapshot, error) {
	m, err := w.store.HGetAll(ctx, w.snapshotKey(memberKey))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w: %w", memberKey, domain.ErrStoreUnavailable, err)
	}
	return domain.Snapshot(m), nil
}

// Snapshots resolves snapshots for a list of members in a single pipelined
// round trip, preserving input order.
func (w *Window) Snapshots(ctx context.Context, memberKeys []string) ([]domain.Snapshot, error) {
	if len(memberKeys) == 0 {
		return nil, nil
	}
	keys := make([]string, len(memberKeys))
	for i, mk := range memberKeys {
		keys[i] = w.snapshotKey(mk)
	}
	maps, err := w.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w: %w", domain.ErrStoreUnavailable, err)
	}
	out := make([]domain.Snapshot, len(maps))
	for i, m := range maps {
		out[i] = domain.Snapshot(m)
	}
	return out, nil
}

// SetSiteMetrics overwrites the per-site latest-metrics rollup. No-op for
// domains without a rollup hash.
func (w *Window) SetSiteMetrics(ctx context.Context, site string, fields map[string]string) error {
	if w.metricsPrefix == "" || len(fields) == 0 {
		return nil
	}
	if err := w.store.HSet(ctx, w.metricsPrefix+site, fields); err != nil {
		return fmt.Errorf("site metrics %s: %w: %w", site, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// SiteMetrics returns the per-site latest-metrics rollup; nil for domains
// without one.
func (w *Window) SiteMetrics(ctx context.Context, site string) (map[string]string, error) {
	if w.metricsPrefix == "" {
		return nil, nil
	}
	m, err := w.store.HGetAll(ctx, w.metricsPrefix+site)
	if err != nil {
		return nil, fmt.Errorf("site metrics %s: %w: %w", site, domain.ErrStoreUnavailable, err)
	}
	return m, nil
}

// DiscoverSites enumerates every site that has (or ever had) a membership
// index key. The result is a snapshot in time, not a live cursor; sorted for
// deterministic output.
func (w *Window) DiscoverSites(ctx context.Context) ([]string, error) {
	keys, err := w.store.Scan(ctx, w.indexPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("discover sites: %w: %w", domain.ErrStoreUnavailable, err)
	}
	sites := make([]string, 0, len(keys))
	for _, k := range keys {
		sites = append(sites, strings.TrimPrefix(k, w.indexPrefix))
	}
	sort.Strings(sites)
	return sites, nil
}

func (w *Window) indexKey(site string) string {
	return w.indexPrefix + site
}

func (w *Window) snapshotKey(memberKey string) string {
	return w.snapshotPrefix + memberKey
}
