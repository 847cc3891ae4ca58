package search

import (
	"context"
	"strings"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
)

// Tier records which part of a section matched the query.
type Tier string

// Match tiers, in the order they are tried.
const (
	TierNone     Tier = ""
	TierTitle    Tier = "title"
	TierKeyPoint Tier = "key_point"
	TierContent  Tier = "content"
)

// yieldEvery is how many sections are scanned between cancellation checks.
const yieldEvery = 64

// Entry is one section of a view.
type Entry struct {
	ID   notes.SectionID
	Tier Tier
}

// View is the ordered subset of sections matching the active query. An empty
// query yields the unfiltered view: every section in original order.
type View struct {
	query   string
	entries []Entry
}

// Unfiltered returns the view of every section of doc.
func Unfiltered(doc *notes.Document) View {
	entries := make([]Entry, doc.Len())
	for i := range entries {
		entries[i] = Entry{ID: notes.SectionID(i)}
	}
	return View{entries: entries}
}

// Query returns the trimmed query the view was built for.
func (v *View) Query() string { return v.query }

// IsFiltered reports whether a query is active.
func (v *View) IsFiltered() bool { return v.query != "" }

// Len returns the number of sections in the view.
func (v *View) Len() int { return len(v.entries) }

// Entries returns a copy of the view entries.
func (v *View) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// IDs returns the section IDs in view order.
func (v *View) IDs() []notes.SectionID {
	ids := make([]notes.SectionID, len(v.entries))
	for i, e := range v.entries {
		ids[i] = e.ID
	}
	return ids
}

// Tier returns the match tier of id, or TierNone when id is not in the view
// or no query is active.
func (v *View) Tier(id notes.SectionID) Tier {
	for _, e := range v.entries {
		if e.ID == id {
			return e.Tier
		}
	}
	return TierNone
}

// Match tests one section against an already lower-cased query. The first
// tier that contains the query wins.
func Match(s *notes.Section, lowerQuery string) Tier {
	if strings.Contains(strings.ToLower(s.Title()), lowerQuery) {
		return TierTitle
	}
	for _, kp := range s.KeyPoints() {
		if strings.Contains(strings.ToLower(kp), lowerQuery) {
			return TierKeyPoint
		}
	}
	if strings.Contains(strings.ToLower(s.Content()), lowerQuery) {
		return TierContent
	}
	return TierNone
}

// Run filters doc by query. A whitespace-only query returns the unfiltered
// view. The scan stops with ctx.Err() if ctx is cancelled.
func Run(ctx context.Context, doc *notes.Document, query string) (View, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Unfiltered(doc), nil
	}
	lower := strings.ToLower(q)

	sections := doc.Sections()
	entries := make([]Entry, 0, len(sections))
	for i := range sections {
		if i%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return View{}, err
			}
		}
		if tier := Match(&sections[i], lower); tier != TierNone {
			entries = append(entries, Entry{ID: sections[i].ID(), Tier: tier})
		}
	}
	return View{query: q, entries: entries}, nil
}
