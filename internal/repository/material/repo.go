package material

import (
	"context"
	"errors"
	"fmt"

	"github.com/excellencecoachinghub/notesreader/internal/db"
	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

// store is the consumer interface for materials (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Repo reads raw structured-notes payloads written by the processing pipeline.
type Repo struct {
	store store
}

// New creates a material repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func materialKey(ref string) string {
	return domain.KeyPrefix + "material:" + ref
}

// Load returns the raw payload of ref. An unknown ref is domain.ErrNoData.
func (r *Repo) Load(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty material reference", domain.ErrNoData)
	}
	key := materialKey(ref)
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: material %s", domain.ErrNoData, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}
