package chi

import (
	"net/http"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	sessionsuc "github.com/excellencecoachinghub/notesreader/internal/usecase/sessions"
)

// sectionAction resolves {session} and {section} and runs fn. It writes the
// error reply and returns false when any step fails.
func (s *Server) sectionAction(
	w http.ResponseWriter, r *http.Request,
	fn func(e *sessionsuc.Entry, id notes.SectionID) error,
) (*sessionsuc.Entry, notes.SectionID, bool) {
	e := s.entry(w, r)
	if e == nil {
		return nil, 0, false
	}
	id, ok := sectionID(w, r)
	if !ok {
		return nil, 0, false
	}
	if err := fn(e, id); err != nil {
		s.handleDomainError(w, r, err)
		return nil, 0, false
	}
	return e, id, true
}

func (s *Server) writeSection(w http.ResponseWriter, r *http.Request, e *sessionsuc.Entry, id notes.SectionID) {
	d, err := e.Session.SectionDetail(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	view := e.Session.View()
	writeJSON(w, http.StatusOK, detailToResponse(&d, view.IsFiltered()))
}

// GetSection handles GET /v1/sessions/{session}/sections/{section}.
func (s *Server) GetSection(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(*sessionsuc.Entry, notes.SectionID) error { return nil })
	if ok {
		s.writeSection(w, r, e, id)
	}
}

// SectionVisible handles POST /v1/sessions/{session}/sections/{section}/visible.
// Clients call it when the section scrolls into the viewport.
func (s *Server) SectionVisible(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.OnViewportIntersect(id)
	})
	if ok {
		s.writeSection(w, r, e, id)
	}
}

// ExpandSection handles POST /v1/sessions/{session}/sections/{section}/expand.
func (s *Server) ExpandSection(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.Expand(id)
	})
	if ok {
		s.writeSection(w, r, e, id)
	}
}

// CollapseSection handles POST /v1/sessions/{session}/sections/{section}/collapse.
func (s *Server) CollapseSection(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.Collapse(id)
	})
	if ok {
		s.writeSection(w, r, e, id)
	}
}

// ToggleStar handles POST /v1/sessions/{session}/sections/{section}/star.
func (s *Server) ToggleStar(w http.ResponseWriter, r *http.Request) {
	var on bool
	_, _, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		var err error
		on, err = e.Session.ToggleStar(id)
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, toggleResponse{Value: on})
	}
}

// SetNote handles PUT /v1/sessions/{session}/sections/{section}/note.
func (s *Server) SetNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.SetNote(id, req.Text)
	})
	if ok {
		s.writeSection(w, r, e, id)
	}
}
