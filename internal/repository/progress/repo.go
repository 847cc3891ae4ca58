package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	domprog "github.com/excellencecoachinghub/notesreader/internal/domain/progress"
)

// store is the consumer interface for progress (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo persists reading progress as one hash per learner and material. It is
// the ProgressSink of reading sessions and the source of prior progress.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a progress repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

func progressKey(o domprog.Owner) string {
	return domain.KeyPrefix + "progress:" + o.UserID + ":" + o.MaterialRef
}

// OnTimeSpent stores the running time total.
func (r *Repo) OnTimeSpent(ctx context.Context, owner domprog.Owner, seconds int64) error {
	return r.hset(ctx, owner, map[string]string{
		fieldTimeSpent: strconv.FormatInt(seconds, 10),
		fieldUpdatedAt: formatTime(r.now()),
	})
}

// OnComplete marks the material completed.
func (r *Repo) OnComplete(ctx context.Context, owner domprog.Owner) error {
	return r.hset(ctx, owner, map[string]string{
		fieldCompleted: strconv.FormatBool(true),
		fieldUpdatedAt: formatTime(r.now()),
	})
}

// OnProgressUpdate replaces the stored snapshot.
func (r *Repo) OnProgressUpdate(ctx context.Context, owner domprog.Owner, snap domprog.Snapshot) error {
	fields, err := snapshotToHash(snap)
	if err != nil {
		return err
	}
	return r.hset(ctx, owner, fields)
}

// Load returns the stored progress of owner, or nil when nothing was recorded.
func (r *Repo) Load(ctx context.Context, owner domprog.Owner) (*domprog.Snapshot, error) {
	key := progressKey(owner)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	snap, err := snapshotFromHash(m)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return &snap, nil
}

func (r *Repo) hset(ctx context.Context, owner domprog.Owner, fields map[string]string) error {
	key := progressKey(owner)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}
