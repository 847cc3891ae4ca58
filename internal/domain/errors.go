package domain

import (
	"errors"
	"fmt"
)

// KeyPrefix is the default namespace for every key the service writes.
const KeyPrefix = "notesreader:"

var (
	// ErrNoData signals that no structured notes were supplied.
	ErrNoData = errors.New("no data")
	// ErrInvalidFormat signals a structurally invalid notes document.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrProcessingFailure signals that an upstream collaborator failed.
	ErrProcessingFailure = errors.New("processing failure")
	// ErrTranslationUnavailable signals a failed translation request.
	ErrTranslationUnavailable = errors.New("translation unavailable")
	// ErrQuizGenerationFailure signals a failed quiz generation request.
	ErrQuizGenerationFailure = errors.New("quiz generation failure")
	// ErrNarrationUnavailable signals a failed speech synthesis request.
	ErrNarrationUnavailable = errors.New("narration unavailable")
	// ErrClipNotFound signals that no narration clip is stored for the session.
	ErrClipNotFound = errors.New("narration clip not found")
	// ErrBudgetExceeded signals an exhausted LLM token budget.
	ErrBudgetExceeded = errors.New("llm token budget exceeded")

	// ErrSessionNotFound signals an unknown or expired reading session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSectionNotFound signals a section index outside the document.
	ErrSectionNotFound = errors.New("section not found")
	// ErrQuizInProgress signals a generation request already in flight for the section.
	ErrQuizInProgress = errors.New("quiz generation in progress")
	// ErrQuizAlreadyGenerated signals a generation request for a section that already has a quiz.
	ErrQuizAlreadyGenerated = errors.New("quiz already generated")
	// ErrQuizNotReady signals a quiz action that is invalid in the current phase.
	ErrQuizNotReady = errors.New("quiz not ready")
	// ErrQuizIncomplete signals a submission with unanswered questions.
	ErrQuizIncomplete = errors.New("quiz has unanswered questions")
	// ErrQuestionNotFound signals a question index outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
)

// DocumentLevel marks a FormatError that is not tied to a particular section.
const DocumentLevel = -1

// FormatError describes which field of the notes document failed validation.
type FormatError struct {
	Field   string
	Section int
	Reason  string
}

func (e *FormatError) Error() string {
	if e.Section == DocumentLevel {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidFormat.Error(), e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: sections[%d].%s: %s", ErrInvalidFormat.Error(), e.Section, e.Field, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

// NewFormatError creates a document-level format error.
func NewFormatError(field, reason string) error {
	return &FormatError{Field: field, Section: DocumentLevel, Reason: reason}
}

// NewSectionFormatError creates a format error for one section.
func NewSectionFormatError(section int, field, reason string) error {
	return &FormatError{Field: field, Section: section, Reason: reason}
}
