// Package embedding stores image embedding vectors as JSON documents.
// There is no vector index; similarity search reads every record and
// scores it in process.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opsgrid/sitepulse/internal/db"
	"github.com/opsgrid/sitepulse/internal/domain"
)

// store is the consumer interface for the embedding repository (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repository persists embedding records under <prefix><id>.
type Repository struct {
	store  store
	prefix string
}

// New creates an embedding repository. keyPrefix namespaces all keys and
// may be empty.
func New(s store, keyPrefix string) *Repository {
	return &Repository{store: s, prefix: keyPrefix + "image:emb:"}
}

// Upsert stores or fully replaces the record for rec.ID.
func (r *Repository) Upsert(ctx context.Context, rec domain.EmbeddingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal embedding %s: %w", rec.ID, err)
	}
	if err := r.store.JSONSet(ctx, r.prefix+rec.ID, "$", data); err != nil {
		return fmt.Errorf("upsert embedding %s: %w: %w", rec.ID, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the record stored for id, or domain.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (domain.EmbeddingRecord, error) {
	doc, err := r.store.JSONGet(ctx, r.prefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.EmbeddingRecord{}, fmt.Errorf("embedding %s: %w", id, domain.ErrNotFound)
		}
		return domain.EmbeddingRecord{}, fmt.Errorf("read embedding %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}

	var rec domain.EmbeddingRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("decode embedding %s: %w", id, err)
	}
	return rec, nil
}

// All returns every stored record in one pipelined read. Records deleted
// between the key scan and the read are skipped. A record that fails to
// decode aborts the whole read; a corrupt store is not silently partial.
func (r *Repository) All(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	docs, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w: %w", domain.ErrStoreUnavailable, err)
	}

	records := make([]domain.EmbeddingRecord, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		var rec domain.EmbeddingRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", keys[i], err)
		}
		records = append(records, rec)
	}
	return records, nil
}
