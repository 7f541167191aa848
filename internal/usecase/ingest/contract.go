package ingest

import "context"

// PresenceWriter is the presence-store surface the ingest path needs.
type PresenceWriter interface {
	Touch(ctx context.Context, site, memberKey string, seen int64, fields map[string]string) error
	EvictOlderThan(ctx context.Context, site string, cutoff int64) (int64, error)
	SetSiteMetrics(ctx context.Context, site string, fields map[string]string) error
}
