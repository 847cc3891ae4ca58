package progress

import (
	"math"
	"slices"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
)

// Owner identifies whose progress is recorded.
type Owner struct {
	UserID      string
	MaterialRef string
}

// Snapshot is the persisted reading progress of one learner on one material.
type Snapshot struct {
	ReadSections     []notes.SectionID
	Starred          []notes.SectionID
	Notes            map[notes.SectionID]string
	TimeSpentSeconds int64
	Completed        bool
	Bookmarked       bool
	UpdatedAt        time.Time
}

// FromTable captures the progress columns of t.
func FromTable(t section.Table, timeSpent int64, completed, bookmarked bool, now time.Time) Snapshot {
	return Snapshot{
		ReadSections:     t.Read(),
		Starred:          t.Starred(),
		Notes:            t.Notes(),
		TimeSpentSeconds: timeSpent,
		Completed:        completed,
		Bookmarked:       bookmarked,
		UpdatedAt:        now,
	}
}

// Seed merges prior progress into t. Sets are unioned, notes already present in
// t win, and ids outside t are dropped.
func Seed(t section.Table, prior Snapshot) section.Table {
	read := make(map[notes.SectionID]bool, len(prior.ReadSections))
	for _, id := range prior.ReadSections {
		read[id] = true
	}
	starred := make(map[notes.SectionID]bool, len(prior.Starred))
	for _, id := range prior.Starred {
		starred[id] = true
	}

	return t.WithAll(func(r *section.RuntimeState) {
		if read[r.ID] {
			r.Progress.Read = true
		}
		if starred[r.ID] {
			r.Progress.Starred = true
		}
		if r.Progress.Note == "" {
			r.Progress.Note = prior.Notes[r.ID]
		}
	})
}

// Percent returns the completion percentage rounded to the nearest integer.
func Percent(read, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(read) * 100 / float64(total)))
}

// SortIDs sorts ids ascending in place and drops duplicates.
func SortIDs(ids []notes.SectionID) []notes.SectionID {
	slices.Sort(ids)
	return slices.Compact(ids)
}
