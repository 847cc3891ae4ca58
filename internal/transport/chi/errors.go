package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	logpkg "github.com/excellencecoachinghub/notesreader/internal/logger"
)

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeSessionNotFound        ErrorCode = "session_not_found"
	CodeSectionNotFound        ErrorCode = "section_not_found"
	CodeQuestionNotFound       ErrorCode = "question_not_found"
	CodeClipNotFound           ErrorCode = "clip_not_found"
	CodeNoData                 ErrorCode = "no_data"
	CodeInvalidFormat          ErrorCode = "invalid_format"
	CodeProcessingFailure      ErrorCode = "processing_failure"
	CodeQuizInProgress         ErrorCode = "quiz_in_progress"
	CodeQuizAlreadyGenerated   ErrorCode = "quiz_already_generated"
	CodeQuizNotReady           ErrorCode = "quiz_not_ready"
	CodeQuizIncomplete         ErrorCode = "quiz_incomplete"
	CodeBudgetExceeded         ErrorCode = "budget_exceeded"
	CodeQuizGenerationFailure  ErrorCode = "quiz_generation_failure"
	CodeTranslationUnavailable ErrorCode = "translation_unavailable"
	CodeNarrationUnavailable   ErrorCode = "narration_unavailable"
	CodeTimeout                ErrorCode = "timeout"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// sentinels is ordered: more specific causes come before the wrappers that
// carry them (a budget rejection is also a quiz generation failure).
var sentinels = []error{
	domain.ErrSessionNotFound,
	domain.ErrSectionNotFound,
	domain.ErrQuestionNotFound,
	domain.ErrClipNotFound,
	domain.ErrNoData,
	domain.ErrInvalidFormat,
	domain.ErrProcessingFailure,
	domain.ErrQuizInProgress,
	domain.ErrQuizAlreadyGenerated,
	domain.ErrQuizNotReady,
	domain.ErrQuizIncomplete,
	domain.ErrBudgetExceeded,
	domain.ErrQuizGenerationFailure,
	domain.ErrTranslationUnavailable,
	domain.ErrNarrationUnavailable,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrSectionNotFound, http.StatusNotFound, CodeSectionNotFound),
		sentinelHandler(domain.ErrQuestionNotFound, http.StatusNotFound, CodeQuestionNotFound),
		sentinelHandler(domain.ErrClipNotFound, http.StatusNotFound, CodeClipNotFound),
		sentinelHandler(domain.ErrNoData, http.StatusNotFound, CodeNoData),
		formatErrorHandler,
		sentinelHandler(domain.ErrProcessingFailure, http.StatusBadGateway, CodeProcessingFailure),
		sentinelHandler(domain.ErrQuizInProgress, http.StatusConflict, CodeQuizInProgress),
		sentinelHandler(domain.ErrQuizAlreadyGenerated, http.StatusConflict, CodeQuizAlreadyGenerated),
		sentinelHandler(domain.ErrQuizNotReady, http.StatusConflict, CodeQuizNotReady),
		sentinelHandler(domain.ErrQuizIncomplete, http.StatusUnprocessableEntity, CodeQuizIncomplete),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusTooManyRequests, CodeBudgetExceeded),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrQuizGenerationFailure, http.StatusBadGateway, CodeQuizGenerationFailure),
		sentinelHandler(domain.ErrTranslationUnavailable, http.StatusBadGateway, CodeTranslationUnavailable),
		sentinelHandler(domain.ErrNarrationUnavailable, http.StatusServiceUnavailable, CodeNarrationUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// formatErrorHandler reports which document field failed validation.
func formatErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidFormat) {
		return false
	}
	var fe *domain.FormatError
	if errors.As(err, &fe) {
		msg = fe.Error()
	}
	writeError(w, http.StatusUnprocessableEntity, CodeInvalidFormat, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.String("path", r.URL.Path), zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
