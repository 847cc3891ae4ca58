package chi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/narration"
)

// OpenSession handles POST /v1/sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.MaterialRef) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "material_ref is required")
		return
	}

	e, err := s.sessions.Open(r.Context(), progress.Owner{UserID: req.UserID, MaterialRef: req.MaterialRef})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/sessions/"+e.Session.ID())
	s.writeSnapshot(w, http.StatusCreated, e)
}

// GetSession handles GET /v1/sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	s.writeSnapshot(w, http.StatusOK, e)
}

// CloseSession handles DELETE /v1/sessions/{session}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "session")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /v1/sessions/{session}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := e.Session.Search(r.Context(), req.Query); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK, e)
}

// LoadMore handles POST /v1/sessions/{session}/window/more.
func (s *Server) LoadMore(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	var req loadMoreRequest
	if !decode(w, r, &req) {
		return
	}
	added, err := e.Session.LoadMore(req.Batch)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loadMoreResponse{Added: ids(added)})
}

// LoadAll handles POST /v1/sessions/{session}/window/all.
func (s *Server) LoadAll(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	if err := e.Session.LoadAll(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK, e)
}

// Export handles GET /v1/sessions/{session}/export.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	text, err := e.Session.Export()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(e.Session.Document().Title())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// ToggleBookmark handles POST /v1/sessions/{session}/bookmark.
func (s *Server) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	on, err := e.Session.ToggleBookmark()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Value: on})
}

// Translate handles POST /v1/sessions/{session}/translate. The text is either
// given verbatim or taken from a section (title and content).
func (s *Server) Translate(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	var req translateRequest
	if !decode(w, r, &req) {
		return
	}
	if s.translation == nil {
		s.handleDomainError(w, r, domain.ErrTranslationUnavailable)
		return
	}

	text := req.Text
	if req.Section != nil {
		sec, ok := e.Session.Document().Section(notes.SectionID(*req.Section))
		if !ok || *req.Section < 0 {
			s.handleDomainError(w, r, domain.ErrSectionNotFound)
			return
		}
		text = narration.SectionText(&sec)
	}
	if strings.TrimSpace(text) == "" || strings.TrimSpace(req.Lang) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "text (or section) and lang are required")
		return
	}

	out, err := s.translation.Translate(r.Context(), text, req.Lang)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Lang: strings.ToLower(strings.TrimSpace(req.Lang)), Translation: out})
}

// exportFilename derives "<title>_notes.txt" with unsafe characters replaced.
func exportFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(title))
	if name == "" {
		name = "study"
	}
	return name + "_notes.txt"
}
