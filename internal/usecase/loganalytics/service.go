// Package loganalytics maintains per-status-code request counters keyed by
// client IP, fed from raw access-log lines.
package loganalytics

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// logLine matches common web log lines: `IP - - [ts] "GET /path" status bytes`.
// Lines that do not match are counted nowhere and are not an error.
var logLine = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3}).*?"\w+ [^"]+" (\d{3})`)

// IPCount is one (client IP, hit count) pair in a ranking.
type IPCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}

// Service parses log lines and ranks IPs per status code.
type Service struct {
	counters  Counters
	keyPrefix string
}

// New creates a Service. keyPrefix namespaces the counter hashes and may be
// empty.
func New(counters Counters, keyPrefix string) *Service {
	return &Service{counters: counters, keyPrefix: keyPrefix}
}

// IngestLine extracts (IP, status) from a raw log line and increments the
// counter. Unparseable lines are silently dropped: the feed is a firehose
// and partial garbage is expected.
func (s *Service) IngestLine(ctx context.Context, line string) (bool, error) {
	m := logLine.FindStringSubmatch(line)
	if m == nil {
		return false, nil
	}
	ip, status := m[1], m[2]
	if err := s.counters.HIncrBy(ctx, s.statusKey(status), ip, 1); err != nil {
		return false, fmt.Errorf("count %s/%s: %w: %w", status, ip, domain.ErrStoreUnavailable, err)
	}
	return true, nil
}

// TopIPs returns up to topN IPs with the most hits for a status code, most
// hits first. Ties break by IP for deterministic output.
func (s *Service) TopIPs(ctx context.Context, status string, topN int) ([]IPCount, error) {
	raw, err := s.counters.HGetAll(ctx, s.statusKey(status))
	if err != nil {
		return nil, fmt.Errorf("top ips %s: %w: %w", status, domain.ErrStoreUnavailable, err)
	}

	pairs := make([]IPCount, 0, len(raw))
	for ip, cnt := range raw {
		n, err := strconv.ParseInt(cnt, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt counter %s/%s=%q: %w", status, ip, cnt, err)
		}
		pairs = append(pairs, IPCount{IP: ip, Count: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].IP < pairs[j].IP
	})
	if topN > 0 && len(pairs) > topN {
		pairs = pairs[:topN]
	}
	return pairs, nil
}

func (s *Service) statusKey(status string) string {
	return s.keyPrefix + "logs:status:" + status + ":by_ip"
}
