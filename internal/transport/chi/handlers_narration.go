package chi

import (
	"net/http"
	"strconv"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/narration"
	sessionsuc "github.com/excellencecoachinghub/notesreader/internal/usecase/sessions"
)

// NarrateSection handles POST /v1/sessions/{session}/sections/{section}/narration.
// Synthesis runs in the background; poll GET .../narration for its outcome.
func (s *Server) NarrateSection(w http.ResponseWriter, r *http.Request) {
	var seq uint64
	_, _, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		var err error
		seq, err = e.NarrateSection(id)
		return err
	})
	if ok {
		writeJSON(w, http.StatusAccepted, narrationStarted{Seq: seq, Target: string(narration.KindSection)})
	}
}

// NarrateSummary handles POST /v1/sessions/{session}/narration/summary.
func (s *Server) NarrateSummary(w http.ResponseWriter, r *http.Request) {
	s.narrate(w, r, narration.KindSummary, (*sessionsuc.Entry).NarrateSummary)
}

// NarrateKeyPoints handles POST /v1/sessions/{session}/narration/key-points.
func (s *Server) NarrateKeyPoints(w http.ResponseWriter, r *http.Request) {
	s.narrate(w, r, narration.KindKeyPoints, (*sessionsuc.Entry).NarrateKeyPoints)
}

func (s *Server) narrate(
	w http.ResponseWriter, r *http.Request,
	kind narration.Kind, start func(*sessionsuc.Entry) (uint64, error),
) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	seq, err := start(e)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, narrationStarted{Seq: seq, Target: string(kind)})
}

// NarrationStatus handles GET /v1/sessions/{session}/narration.
func (s *Server) NarrationStatus(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	writeJSON(w, http.StatusOK, narrationToStatus(e.Narrator))
}

// StopNarration handles DELETE /v1/sessions/{session}/narration.
func (s *Server) StopNarration(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Value: e.Narrator.Stop()})
}

// NarrationAudio handles GET /v1/sessions/{session}/narration/audio.
func (s *Server) NarrationAudio(w http.ResponseWriter, r *http.Request) {
	e := s.entry(w, r)
	if e == nil {
		return
	}
	clip, err := e.Narrator.Clip(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	contentType := clip.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip.Data)
}
