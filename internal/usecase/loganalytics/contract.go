package loganalytics

import "context"

// Counters is the hash-counter surface the service needs from the store.
type Counters interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}
