package chi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	sessionsuc "github.com/excellencecoachinghub/notesreader/internal/usecase/sessions"
)

func (s *Server) writeQuizState(w http.ResponseWriter, r *http.Request, status int, e *sessionsuc.Entry, id notes.SectionID) {
	st, err := e.Session.QuizState(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, status, quizStateToResponse(st))
}

// GetQuiz handles GET /v1/sessions/{session}/sections/{section}/quiz.
func (s *Server) GetQuiz(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(*sessionsuc.Entry, notes.SectionID) error { return nil })
	if ok {
		s.writeQuizState(w, r, http.StatusOK, e, id)
	}
}

// GenerateQuiz handles POST /v1/sessions/{session}/sections/{section}/quiz.
// It blocks until the quiz is ready; a disconnecting client aborts generation.
func (s *Server) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		_, err := e.Session.GenerateQuiz(r.Context(), id)
		return err
	})
	if ok {
		s.writeQuizState(w, r, http.StatusCreated, e, id)
	}
}

// CancelQuizGeneration handles DELETE /v1/sessions/{session}/sections/{section}/quiz/generation.
func (s *Server) CancelQuizGeneration(w http.ResponseWriter, r *http.Request) {
	var aborted bool
	_, _, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		var err error
		aborted, err = e.Session.CancelQuizGeneration(id)
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, toggleResponse{Value: aborted})
	}
}

// AnswerQuestion handles PUT /v1/sessions/{session}/sections/{section}/quiz/answers/{question}.
func (s *Server) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "question"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid question index")
		return
	}
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.AnswerQuestion(id, index, req.Answer)
	})
	if ok {
		s.writeQuizState(w, r, http.StatusOK, e, id)
	}
}

// SubmitQuiz handles POST /v1/sessions/{session}/sections/{section}/quiz/submit.
func (s *Server) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		_, err := e.Session.SubmitQuiz(id)
		return err
	})
	if ok {
		s.writeQuizState(w, r, http.StatusOK, e, id)
	}
}

// ResetQuiz handles POST /v1/sessions/{session}/sections/{section}/quiz/reset.
func (s *Server) ResetQuiz(w http.ResponseWriter, r *http.Request) {
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.ResetQuiz(id)
	})
	if ok {
		s.writeQuizState(w, r, http.StatusOK, e, id)
	}
}

// SetQuizVisibility handles PUT /v1/sessions/{session}/sections/{section}/quiz/visibility.
func (s *Server) SetQuizVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !decode(w, r, &req) {
		return
	}
	e, id, ok := s.sectionAction(w, r, func(e *sessionsuc.Entry, id notes.SectionID) error {
		return e.Session.SetQuizVisibility(id, req.ShowQuiz, req.ShowResults)
	})
	if ok {
		s.writeQuizState(w, r, http.StatusOK, e, id)
	}
}
