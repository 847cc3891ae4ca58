package progress

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	domprog "github.com/excellencecoachinghub/notesreader/internal/domain/progress"
)

var owner = domprog.Owner{UserID: "u1", MaterialRef: "mat-7"}

func TestRepo_ProgressRoundTrip(t *testing.T) {
	ms := newMockStore()
	r := New(ms)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	snap := domprog.Snapshot{
		ReadSections:     []notes.SectionID{0, 2},
		Starred:          []notes.SectionID{2},
		Notes:            map[notes.SectionID]string{2: "revisit"},
		TimeSpentSeconds: 95,
		Bookmarked:       true,
		UpdatedAt:        at,
	}
	if err := r.OnProgressUpdate(ctx, owner, snap); err != nil {
		t.Fatalf("OnProgressUpdate: %v", err)
	}

	h := ms.hashes["notesreader:progress:u1:mat-7"]
	if h["read_sections"] != "[0,2]" || h["notes"] != `{"2":"revisit"}` || h["bookmarked"] != "true" {
		t.Errorf("unexpected hash: %v", h)
	}

	got, err := r.Load(ctx, owner)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fmt.Sprint(got.ReadSections) != "[0 2]" || got.Notes[2] != "revisit" || got.TimeSpentSeconds != 95 {
		t.Errorf("loaded %+v", got)
	}
	if !got.Bookmarked || got.Completed || !got.UpdatedAt.Equal(at) {
		t.Errorf("flags/time wrong: %+v", got)
	}
}

func TestRepo_TimeAndCompletionEvents(t *testing.T) {
	ms := newMockStore()
	r := New(ms)
	r.now = func() time.Time { return time.Unix(0, 0) }
	ctx := context.Background()

	if err := r.OnTimeSpent(ctx, owner, 42); err != nil {
		t.Fatal(err)
	}
	if err := r.OnComplete(ctx, owner); err != nil {
		t.Fatal(err)
	}

	got, err := r.Load(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if got.TimeSpentSeconds != 42 || !got.Completed || len(got.ReadSections) != 0 {
		t.Errorf("loaded %+v", got)
	}
}

func TestRepo_EmptySnapshotEncodesEmptyCollections(t *testing.T) {
	ms := newMockStore()
	r := New(ms)
	if err := r.OnProgressUpdate(context.Background(), owner, domprog.Snapshot{}); err != nil {
		t.Fatal(err)
	}
	h := ms.hashes[progressKey(owner)]
	if h["read_sections"] != "[]" || h["starred"] != "[]" || h["notes"] != "{}" {
		t.Errorf("unexpected hash: %v", h)
	}
}

func TestRepo_LoadMissing(t *testing.T) {
	r := New(newMockStore())
	got, err := r.Load(context.Background(), owner)
	if err != nil || got != nil {
		t.Fatalf("Load = %v, %v; want nil, nil", got, err)
	}
}

func TestRepo_LoadCorrupt(t *testing.T) {
	ms := newMockStore()
	ms.hashes[progressKey(owner)] = map[string]string{"read_sections": "not json"}
	if _, err := New(ms).Load(context.Background(), owner); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRepo_StoreErrors(t *testing.T) {
	ms := newMockStore()
	ms.hsetErr = errors.New("connection refused")
	ms.hgetAllFn = func(context.Context, string) (map[string]string, error) {
		return nil, errors.New("connection refused")
	}
	r := New(ms)
	ctx := context.Background()

	if err := r.OnTimeSpent(ctx, owner, 1); err == nil {
		t.Error("expected OnTimeSpent error")
	}
	if _, err := r.Load(ctx, owner); err == nil {
		t.Error("expected Load error")
	}
}
