// Package ingest implements the telemetry write path: validate, stamp,
// flatten, touch the presence window, then opportunistically trim it.
package ingest

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/opsgrid/sitepulse/internal/domain"
	"github.com/opsgrid/sitepulse/internal/metrics"
)

// Service ingests events for one presence domain (devices or users).
type Service struct {
	window    PresenceWriter
	domain    string // metrics label: "devices" or "users"
	windowSec int64
	logger    *zap.Logger
	now       func() int64
}

// NewDevices creates the ingest service for device telemetry.
func NewDevices(window PresenceWriter, windowSec int64, logger *zap.Logger) *Service {
	return &Service{
		window:    window,
		domain:    "devices",
		windowSec: windowSec,
		logger:    logger,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// NewUsers creates the ingest service for user activity.
func NewUsers(window PresenceWriter, windowSec int64, logger *zap.Logger) *Service {
	return &Service{
		window:    window,
		domain:    "users",
		windowSec: windowSec,
		logger:    logger,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// Ingest records one event. Validation happens before any write, so a
// rejected event leaves no partial state. After the write the site's window
// is trimmed best-effort: an eviction failure is logged and counted but the
// ingest still succeeds, because the next query filters by score anyway.
func (s *Service) Ingest(ctx context.Context, evt domain.Event) error {
	if err := evt.Validate(); err != nil {
		metrics.EventsIngestedTotal.WithLabelValues(s.domain, "invalid").Inc()
		return err
	}

	seen := evt.Timestamp
	if seen == 0 {
		seen = s.now()
	}

	mk := domain.MemberKey(evt.Site, evt.Category, evt.ID)
	if err := s.window.Touch(ctx, evt.Site, mk, seen, s.snapshotFields(evt, seen)); err != nil {
		metrics.EventsIngestedTotal.WithLabelValues(s.domain, "error").Inc()
		return err
	}

	if rollup := siteRollup(evt.Metrics); len(rollup) > 0 {
		if err := s.window.SetSiteMetrics(ctx, evt.Site, rollup); err != nil {
			metrics.EventsIngestedTotal.WithLabelValues(s.domain, "error").Inc()
			return err
		}
	}

	s.evict(ctx, evt.Site, seen)
	metrics.EventsIngestedTotal.WithLabelValues(s.domain, "ok").Inc()
	return nil
}

// evict trims members that fell out of the window ending at seen. Best
// effort only: failures never surface to the producer.
func (s *Service) evict(ctx context.Context, site string, seen int64) {
	cutoff := seen - s.windowSec
	n, err := s.window.EvictOlderThan(ctx, site, cutoff)
	if err != nil {
		metrics.EvictionFailuresTotal.WithLabelValues(s.domain).Inc()
		s.logger.Warn("presence eviction failed",
			zap.String("domain", s.domain),
			zap.String("site_id", site),
			zap.Int64("cutoff", cutoff),
			zap.Error(err),
		)
		return
	}
	if n > 0 {
		metrics.MembersEvictedTotal.WithLabelValues(s.domain).Add(float64(n))
	}
}

// snapshotFields builds the flat hash written next to the membership entry.
// Metric values keep their shortest decimal form.
func (s *Service) snapshotFields(evt domain.Event, seen int64) map[string]string {
	fields := map[string]string{
		"site_id":      evt.Site,
		"category":     evt.Category,
		"id":           evt.ID,
		"last_seen_ts": strconv.FormatInt(seen, 10),
	}
	if evt.UserID != "" {
		fields["user_id"] = evt.UserID
	}
	for name, value := range evt.Metrics {
		fields["m:"+name] = formatMetric(value)
	}
	return fields
}

// siteRollup derives the "latest value per metric" fields for the per-site
// rollup hash. Domains without a rollup ignore the result (no-op writer).
func siteRollup(m map[string]float64) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for name, value := range m {
		out[name+"_last"] = formatMetric(value)
	}
	return out
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
