package sessions

import (
	"context"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/reading"
)

// DocumentLoader fetches and validates a material.
type DocumentLoader interface {
	Load(ctx context.Context, ref string) (notes.Document, error)
}

// ProgressStore is the progress sink of sessions and the source of progress
// recorded by earlier ones.
type ProgressStore interface {
	reading.ProgressSink
	Load(ctx context.Context, owner progress.Owner) (*progress.Snapshot, error)
}
