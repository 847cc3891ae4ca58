package quiz

import (
	"fmt"
	"strings"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

// Phase is the lifecycle stage of a section quiz.
type Phase string

// Quiz phases.
const (
	NotGenerated Phase = "not_generated"
	Generating   Phase = "generating"
	Ready        Phase = "ready"
	Submitted    Phase = "submitted"
)

// State is the quiz state of one section. It is a value: every transition
// returns a new State and leaves the receiver untouched.
type State struct {
	phase       Phase
	token       uint64
	quiz        *Quiz
	answers     map[int]string
	result      *Result
	showQuiz    bool
	showResults bool
	attempts    int
}

// Phase returns the current phase.
func (s State) Phase() Phase {
	if s.phase == "" {
		return NotGenerated
	}
	return s.phase
}

// Token returns the identifier of the in-flight generation request.
func (s State) Token() uint64 { return s.token }

// Quiz returns the generated quiz, if any.
func (s State) Quiz() (*Quiz, bool) { return s.quiz, s.quiz != nil }

// Answers returns a copy of the recorded answers keyed by question index.
func (s State) Answers() map[int]string {
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Result returns the most recent graded submission, kept across resets.
func (s State) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// ShowQuiz reports whether the quiz panel is shown.
func (s State) ShowQuiz() bool { return s.showQuiz }

// ShowResults reports whether the results panel is shown.
func (s State) ShowResults() bool { return s.showResults }

// Attempts returns the number of submissions.
func (s State) Attempts() int { return s.attempts }

// BeginGeneration moves NotGenerated to Generating under the given request token.
func (s State) BeginGeneration(token uint64) (State, error) {
	switch s.Phase() {
	case NotGenerated:
	case Generating:
		return s, domain.ErrQuizInProgress
	default:
		return s, domain.ErrQuizAlreadyGenerated
	}
	s.phase = Generating
	s.token = token
	return s, nil
}

// Complete installs a generated quiz. It reports false, leaving the state
// unchanged, when token does not identify the in-flight request.
func (s State) Complete(token uint64, q Quiz) (State, bool) {
	if s.Phase() != Generating || s.token != token {
		return s, false
	}
	s.phase = Ready
	s.token = 0
	s.quiz = &q
	s.answers = nil
	s.showQuiz = true
	s.showResults = false
	return s, true
}

// Abort returns a Generating state to NotGenerated. It reports false when
// token does not identify the in-flight request.
func (s State) Abort(token uint64) (State, bool) {
	if s.Phase() != Generating || s.token != token {
		return s, false
	}
	s.phase = NotGenerated
	s.token = 0
	return s, true
}

// Answer records the answer to question index.
func (s State) Answer(index int, answer string) (State, error) {
	if s.Phase() != Ready {
		return s, fmt.Errorf("answer: %w", domain.ErrQuizNotReady)
	}
	if index < 0 || index >= s.quiz.Len() {
		return s, fmt.Errorf("%w: %d", domain.ErrQuestionNotFound, index)
	}
	answers := s.Answers()
	answers[index] = answer
	s.answers = answers
	return s, nil
}

// HasAnsweredAll reports whether every question has a non-blank answer.
func (s State) HasAnsweredAll() bool {
	if s.quiz == nil {
		return false
	}
	for i := 0; i < s.quiz.Len(); i++ {
		if strings.TrimSpace(s.answers[i]) == "" {
			return false
		}
	}
	return true
}

// Submit grades the recorded answers.
func (s State) Submit() (State, Result, error) {
	if s.Phase() != Ready {
		return s, Result{}, fmt.Errorf("submit: %w", domain.ErrQuizNotReady)
	}
	if !s.HasAnsweredAll() {
		return s, Result{}, domain.ErrQuizIncomplete
	}
	res := Grade(s.quiz, s.answers)
	s.phase = Submitted
	s.result = &res
	s.showResults = true
	s.showQuiz = false
	s.attempts++
	return s, res, nil
}

// Reset clears the answers for a retake. The last result is kept.
func (s State) Reset() (State, error) {
	switch s.Phase() {
	case Ready, Submitted:
	default:
		return s, fmt.Errorf("reset: %w", domain.ErrQuizNotReady)
	}
	s.phase = Ready
	s.answers = nil
	s.showResults = false
	s.showQuiz = true
	return s, nil
}

// WithVisibility sets the panel toggles. A nil argument leaves that toggle as is.
func (s State) WithVisibility(showQuiz, showResults *bool) State {
	if showQuiz != nil {
		s.showQuiz = *showQuiz
	}
	if showResults != nil {
		s.showResults = *showResults
	}
	return s
}
