package domain

// Snapshot is the last-known flat field set for a member. It is kept after
// the member falls out of the presence window: membership, not the snapshot,
// is the source of truth for "active".
type Snapshot map[string]string

// SiteSummary is the presence view of one site at one point in time.
type SiteSummary struct {
	Site          string
	ActiveCount   int64
	Members       []Snapshot
	LatestMetrics map[string]string // per-site rollup, user domain only
}

// AllSitesSummary aggregates per-site summaries. The per-site counts are
// independent point-in-time reads, so the total is not transactionally
// consistent across sites.
type AllSitesSummary struct {
	TotalActive int64
	Sites       []SiteSummary
}
