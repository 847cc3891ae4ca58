package reading

import (
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/window"
)

// OnViewportIntersect marks section id visible.
func (s *Session) OnViewportIntersect(id notes.SectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sectionLocked(id); err != nil {
		return err
	}
	s.table = window.Intersect(s.table, id)
	return nil
}

// Expand opens section id and marks it read. Expansion is the only read signal.
func (s *Session) Expand(id notes.SectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.sectionLocked(id)
	if err != nil {
		return err
	}
	s.table = window.Expand(s.table, id)
	if !row.Progress.Read {
		s.markReadLocked(id)
	}
	return nil
}

// Collapse closes section id. It stays visible.
func (s *Session) Collapse(id notes.SectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sectionLocked(id); err != nil {
		return err
	}
	s.table = window.Collapse(s.table, id)
	return nil
}

// LoadMore reveals and expands the next batch sections after the highest
// visible one and returns their ids. batch <= 0 uses the configured default.
// Revealed sections are not marked read.
func (s *Session) LoadMore(batch int) ([]notes.SectionID, error) {
	if batch <= 0 {
		batch = s.cfg.Window.Batch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return nil, err
	}
	var added []notes.SectionID
	s.table, added = window.LoadMore(s.table, batch)
	return added, nil
}

// LoadAll reveals and expands every section.
func (s *Session) LoadAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return err
	}
	s.table = window.LoadAll(s.table)
	return nil
}
