package section

import (
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
)

// Window holds the rendering flags of a section. Expanded implies Visible.
type Window struct {
	Visible  bool
	Expanded bool
}

// Progress holds the learner's marks on a section.
type Progress struct {
	Read    bool
	Starred bool
	Note    string
}

// RuntimeState is everything a reading session tracks for one section.
type RuntimeState struct {
	ID       notes.SectionID
	Window   Window
	Progress Progress
	Quiz     quiz.State
}

// Table is the per-section runtime state of a session, indexed by SectionID.
// A Table is never modified in place; With returns an updated copy, so a Table
// obtained from a session is a consistent snapshot.
type Table struct {
	rows []RuntimeState
}

// NewTable creates a table with n empty rows.
func NewTable(n int) Table {
	rows := make([]RuntimeState, n)
	for i := range rows {
		rows[i].ID = notes.SectionID(i)
	}
	return Table{rows: rows}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Row returns the state of id.
func (t Table) Row(id notes.SectionID) (RuntimeState, bool) {
	if int(id) < 0 || int(id) >= len(t.rows) {
		return RuntimeState{}, false
	}
	return t.rows[id], true
}

// Rows returns a copy of all rows in SectionID order.
func (t Table) Rows() []RuntimeState {
	out := make([]RuntimeState, len(t.rows))
	copy(out, t.rows)
	return out
}

// With returns a copy of the table with fn applied to the row of id.
// Out-of-range ids return the table unchanged. The Expanded-implies-Visible
// invariant is enforced after fn runs.
func (t Table) With(id notes.SectionID, fn func(*RuntimeState)) Table {
	if int(id) < 0 || int(id) >= len(t.rows) {
		return t
	}
	rows := make([]RuntimeState, len(t.rows))
	copy(rows, t.rows)
	fn(&rows[id])
	rows[id].ID = id
	if rows[id].Window.Expanded {
		rows[id].Window.Visible = true
	}
	return Table{rows: rows}
}

// WithAll returns a copy of the table with fn applied to every row.
func (t Table) WithAll(fn func(*RuntimeState)) Table {
	rows := make([]RuntimeState, len(t.rows))
	copy(rows, t.rows)
	for i := range rows {
		fn(&rows[i])
		rows[i].ID = notes.SectionID(i)
		if rows[i].Window.Expanded {
			rows[i].Window.Visible = true
		}
	}
	return Table{rows: rows}
}

// Visible returns the ids with Window.Visible set, ascending.
func (t Table) Visible() []notes.SectionID {
	return t.collect(func(r *RuntimeState) bool { return r.Window.Visible })
}

// Expanded returns the ids with Window.Expanded set, ascending.
func (t Table) Expanded() []notes.SectionID {
	return t.collect(func(r *RuntimeState) bool { return r.Window.Expanded })
}

// Read returns the ids marked read, ascending.
func (t Table) Read() []notes.SectionID {
	return t.collect(func(r *RuntimeState) bool { return r.Progress.Read })
}

// Starred returns the starred ids, ascending.
func (t Table) Starred() []notes.SectionID {
	return t.collect(func(r *RuntimeState) bool { return r.Progress.Starred })
}

// Notes returns the non-empty user notes keyed by section.
func (t Table) Notes() map[notes.SectionID]string {
	out := make(map[notes.SectionID]string)
	for i := range t.rows {
		if n := t.rows[i].Progress.Note; n != "" {
			out[t.rows[i].ID] = n
		}
	}
	return out
}

// ReadCount returns the number of rows marked read.
func (t Table) ReadCount() int {
	n := 0
	for i := range t.rows {
		if t.rows[i].Progress.Read {
			n++
		}
	}
	return n
}

func (t Table) collect(pred func(*RuntimeState) bool) []notes.SectionID {
	var out []notes.SectionID
	for i := range t.rows {
		if pred(&t.rows[i]) {
			out = append(out, t.rows[i].ID)
		}
	}
	return out
}
