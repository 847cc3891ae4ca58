package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	healthuc "github.com/excellencecoachinghub/notesreader/internal/usecase/health"
	sessionsuc "github.com/excellencecoachinghub/notesreader/internal/usecase/sessions"
	translationuc "github.com/excellencecoachinghub/notesreader/internal/usecase/translation"
	usageuc "github.com/excellencecoachinghub/notesreader/internal/usecase/usage"
	"github.com/excellencecoachinghub/notesreader/internal/version"
)

const maxBodyBytes = 1 << 20

// Server serves the reading session API.
type Server struct {
	sessions      *sessionsuc.Registry
	translation   *translationuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. translation may be nil.
func NewServer(
	sessions *sessionsuc.Registry,
	translation *translationuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		sessions:      sessions,
		translation:   translation,
		usage:         usage,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts every route on r. Middlewares must be installed on r first.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/v1/usage", s.GetUsage)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.OpenSession)
		r.Route("/{session}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/search", s.Search)
			r.Post("/window/more", s.LoadMore)
			r.Post("/window/all", s.LoadAll)
			r.Get("/export", s.Export)
			r.Post("/bookmark", s.ToggleBookmark)
			r.Post("/translate", s.Translate)

			r.Post("/narration/summary", s.NarrateSummary)
			r.Post("/narration/key-points", s.NarrateKeyPoints)
			r.Get("/narration", s.NarrationStatus)
			r.Delete("/narration", s.StopNarration)
			r.Get("/narration/audio", s.NarrationAudio)

			r.Route("/sections/{section}", func(r chi.Router) {
				r.Get("/", s.GetSection)
				r.Post("/visible", s.SectionVisible)
				r.Post("/expand", s.ExpandSection)
				r.Post("/collapse", s.CollapseSection)
				r.Post("/star", s.ToggleStar)
				r.Put("/note", s.SetNote)
				r.Post("/narration", s.NarrateSection)

				r.Get("/quiz", s.GetQuiz)
				r.Post("/quiz", s.GenerateQuiz)
				r.Delete("/quiz/generation", s.CancelQuizGeneration)
				r.Put("/quiz/answers/{question}", s.AnswerQuestion)
				r.Post("/quiz/submit", s.SubmitQuiz)
				r.Post("/quiz/reset", s.ResetQuiz)
				r.Put("/quiz/visibility", s.SetQuizVisibility)
			})
		})
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// entry resolves the {session} path parameter. It writes the error reply and
// returns nil when the session does not exist.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) *sessionsuc.Entry {
	e, err := s.sessions.Get(chi.URLParam(r, "session"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil
	}
	return e
}

// sectionID parses the {section} path parameter.
func sectionID(w http.ResponseWriter, r *http.Request) (notes.SectionID, bool) {
	raw := chi.URLParam(r, "section")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid section index %q", raw))
		return 0, false
	}
	return notes.SectionID(n), true
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
	return false
}

func (s *Server) writeSnapshot(w http.ResponseWriter, status int, e *sessionsuc.Entry) {
	snap := e.Session.Snapshot()
	resp := snapshotToResponse(&snap, e.Session.Document())
	resp.Narration = narrationToStatus(e.Narrator)
	writeJSON(w, status, resp)
}
