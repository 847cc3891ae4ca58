package window

import (
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/search"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
)

// Config is the windowing policy.
type Config struct {
	InitialVisible  int // sections visible when a session opens
	InitialExpanded int // sections expanded when a session opens
	Batch           int // default LoadMore batch
	Threshold       int // documents with at most this many sections render everything
}

// DefaultConfig returns the standard policy: 3 visible, 1 expanded, batches of
// 5, windowing only above 10 sections.
func DefaultConfig() Config {
	return Config{InitialVisible: 3, InitialExpanded: 1, Batch: 5, Threshold: 10}
}

// Initial sets the opening window on t.
func Initial(t section.Table, cfg Config) section.Table {
	return t.WithAll(func(r *section.RuntimeState) {
		r.Window.Visible = int(r.ID) < cfg.InitialVisible
		r.Window.Expanded = int(r.ID) < cfg.InitialExpanded && int(r.ID) < cfg.InitialVisible
	})
}

// Intersect marks id visible. Repeated calls are no-ops.
func Intersect(t section.Table, id notes.SectionID) section.Table {
	if r, ok := t.Row(id); !ok || r.Window.Visible {
		return t
	}
	return t.With(id, func(r *section.RuntimeState) { r.Window.Visible = true })
}

// Expand marks id visible and expanded.
func Expand(t section.Table, id notes.SectionID) section.Table {
	return t.With(id, func(r *section.RuntimeState) {
		r.Window.Visible = true
		r.Window.Expanded = true
	})
}

// Collapse clears the expanded flag of id. Visibility is never revoked.
func Collapse(t section.Table, id notes.SectionID) section.Table {
	return t.With(id, func(r *section.RuntimeState) { r.Window.Expanded = false })
}

// LoadMore extends the window by batch sections after the highest visible
// one, clipped to the document. New sections are visible and expanded. It
// returns the updated table and the ids that were added.
func LoadMore(t section.Table, batch int) (section.Table, []notes.SectionID) {
	if batch <= 0 {
		return t, nil
	}
	start := 0
	if vis := t.Visible(); len(vis) > 0 {
		start = int(vis[len(vis)-1]) + 1
	}
	end := start + batch
	if end > t.Len() {
		end = t.Len()
	}

	var added []notes.SectionID
	for i := start; i < end; i++ {
		added = append(added, notes.SectionID(i))
	}
	if len(added) == 0 {
		return t, nil
	}
	out := t.WithAll(func(r *section.RuntimeState) {
		if int(r.ID) >= start && int(r.ID) < end {
			r.Window.Visible = true
			r.Window.Expanded = true
		}
	})
	return out, added
}

// LoadAll makes every section visible and expanded.
func LoadAll(t section.Table) section.Table {
	return t.WithAll(func(r *section.RuntimeState) {
		r.Window.Visible = true
		r.Window.Expanded = true
	})
}

// Rendered is what the reader shows right now.
type Rendered struct {
	Visible  []notes.SectionID
	Expanded []notes.SectionID
}

// Render resolves the window to show for view. An active query shows every
// matched section expanded; a small document shows everything; otherwise the
// stored window applies.
func Render(t section.Table, view *search.View, cfg Config) Rendered {
	if view != nil && view.IsFiltered() {
		ids := view.IDs()
		return Rendered{Visible: ids, Expanded: append([]notes.SectionID(nil), ids...)}
	}
	if t.Len() <= cfg.Threshold {
		all := make([]notes.SectionID, t.Len())
		for i := range all {
			all[i] = notes.SectionID(i)
		}
		return Rendered{Visible: all, Expanded: append([]notes.SectionID(nil), all...)}
	}
	return Rendered{Visible: t.Visible(), Expanded: t.Expanded()}
}
