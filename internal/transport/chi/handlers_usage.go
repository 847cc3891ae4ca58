package chi

import (
	"net/http"

	domusage "github.com/excellencecoachinghub/notesreader/internal/domain/usage"
)

// GetUsage handles GET /v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, ok := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, `period must be "day" or "month"`)
		return
	}
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, reportToResponse(&report))
}
