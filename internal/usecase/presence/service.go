// Package presence implements the read path over the windowed presence
// store: per-site summaries and the all-sites aggregate.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/opsgrid/sitepulse/internal/domain"
	"github.com/opsgrid/sitepulse/internal/metrics"
)

// Service answers "who is active now" for one presence domain.
type Service struct {
	window       WindowReader
	domain       string // metrics label: "devices" or "users"
	windowSec    int64
	defaultLimit int64
	now          func() int64
}

// NewDevices creates the query service for device presence.
func NewDevices(window WindowReader, windowSec, defaultLimit int64) *Service {
	return &Service{
		window:       window,
		domain:       "devices",
		windowSec:    windowSec,
		defaultLimit: defaultLimit,
		now:          func() int64 { return time.Now().Unix() },
	}
}

// NewUsers creates the query service for user presence.
func NewUsers(window WindowReader, windowSec, defaultLimit int64) *Service {
	return &Service{
		window:       window,
		domain:       "users",
		windowSec:    windowSec,
		defaultLimit: defaultLimit,
		now:          func() int64 { return time.Now().Unix() },
	}
}

// Site summarizes one site: full-window count, the most recent members up
// to limit, their snapshots in one batched read, and the per-site rollup
// where the domain has one. limit <= 0 falls back to the default. The count
// reflects the whole window even when the listing is capped.
func (s *Service) Site(ctx context.Context, site string, limit int64) (domain.SiteSummary, error) {
	timer := time.Now()
	defer func() {
		metrics.PresenceQueryDuration.WithLabelValues(s.domain, "site").Observe(time.Since(timer).Seconds())
	}()
	return s.siteSummary(ctx, site, limit)
}

func (s *Service) siteSummary(ctx context.Context, site string, limit int64) (domain.SiteSummary, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	now := s.now()
	windowStart := now - s.windowSec

	count, err := s.window.CountActive(ctx, site, windowStart, now)
	if err != nil {
		return domain.SiteSummary{}, err
	}
	members, err := s.window.ListActive(ctx, site, windowStart, now, limit)
	if err != nil {
		return domain.SiteSummary{}, err
	}
	snaps, err := s.window.Snapshots(ctx, members)
	if err != nil {
		return domain.SiteSummary{}, err
	}
	rollup, err := s.window.SiteMetrics(ctx, site)
	if err != nil {
		return domain.SiteSummary{}, err
	}

	return domain.SiteSummary{
		Site:          site,
		ActiveCount:   count,
		Members:       snaps,
		LatestMetrics: rollup,
	}, nil
}

// AllSites discovers every known site and summarizes each concurrently.
// Results keep the discovered (sorted) site order. The per-site reads are
// independent point-in-time snapshots, so the total can drift from any
// single site's view under concurrent ingest; callers get a consistent-ish
// aggregate, not a transaction.
func (s *Service) AllSites(ctx context.Context, limit int64) (domain.AllSitesSummary, error) {
	timer := time.Now()
	defer func() {
		metrics.PresenceQueryDuration.WithLabelValues(s.domain, "all").Observe(time.Since(timer).Seconds())
	}()

	sites, err := s.window.DiscoverSites(ctx)
	if err != nil {
		return domain.AllSitesSummary{}, err
	}
	if len(sites) == 0 {
		return domain.AllSitesSummary{Sites: []domain.SiteSummary{}}, nil
	}

	summaries := make([]domain.SiteSummary, len(sites))
	errs := make([]error, len(sites))
	var wg sync.WaitGroup
	for i, site := range sites {
		wg.Add(1)
		go func(i int, site string) {
			defer wg.Done()
			summaries[i], errs[i] = s.siteSummary(ctx, site, limit)
		}(i, site)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return domain.AllSitesSummary{}, err
		}
	}

	var total int64
	for _, sum := range summaries {
		total += sum.ActiveCount
	}
	return domain.AllSitesSummary{TotalActive: total, Sites: summaries}, nil
}
