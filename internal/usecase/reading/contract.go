package reading

import (
	"context"

	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
)

// ProgressSink receives progress events. Calls are made from a background
// worker; errors are logged and never retried.
type ProgressSink interface {
	OnTimeSpent(ctx context.Context, owner progress.Owner, seconds int64) error
	OnComplete(ctx context.Context, owner progress.Owner) error
	OnProgressUpdate(ctx context.Context, owner progress.Owner, snap progress.Snapshot) error
}
