// Package guideline stores safety-compliance document chunks used as
// retrieval context for the AI analysis flows.
package guideline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsgrid/sitepulse/internal/domain"
)

// store is the consumer interface for the guideline repository (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repository persists guideline documents under <prefix><id>.
type Repository struct {
	store  store
	prefix string
}

// New creates a guideline repository. keyPrefix namespaces all keys and may
// be empty.
func New(s store, keyPrefix string) *Repository {
	return &Repository{store: s, prefix: keyPrefix + "safety:doc:"}
}

// Upsert stores or fully replaces the document for doc.ID.
func (r *Repository) Upsert(ctx context.Context, doc domain.GuidelineDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal guideline %s: %w", doc.ID, err)
	}
	if err := r.store.JSONSet(ctx, r.prefix+doc.ID, "$", data); err != nil {
		return fmt.Errorf("upsert guideline %s: %w: %w", doc.ID, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// All returns every stored document in one pipelined read. The corpus is
// expected to stay small (hundreds of chunks); callers rank in process.
func (r *Repository) All(ctx context.Context) ([]domain.GuidelineDoc, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan guidelines: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	docs, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read guidelines: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.GuidelineDoc, 0, len(docs))
	for i, raw := range docs {
		if raw == nil {
			continue
		}
		var doc domain.GuidelineDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode guideline %s: %w", keys[i], err)
		}
		out = append(out, doc)
	}
	return out, nil
}
