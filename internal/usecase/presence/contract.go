package presence

import (
	"context"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// WindowReader is the presence-store surface the query path needs.
type WindowReader interface {
	CountActive(ctx context.Context, site string, windowStart, now int64) (int64, error)
	ListActive(ctx context.Context, site string, windowStart, now, limit int64) ([]string, error)
	Snapshots(ctx context.Context, memberKeys []string) ([]domain.Snapshot, error)
	SiteMetrics(ctx context.Context, site string) (map[string]string, error)
	DiscoverSites(ctx context.Context) ([]string, error)
}
