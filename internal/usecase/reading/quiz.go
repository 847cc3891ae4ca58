package reading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// errGenerationAborted is the cancellation cause set by CancelQuizGeneration and Close.
var errGenerationAborted = errors.New("generation aborted")

// GenerateQuiz requests a quiz for section id and blocks until it is ready,
// fails, times out or is aborted. Sections generate independently; a second
// request for a section that is already generating fails with
// domain.ErrQuizInProgress. On failure the section returns to NotGenerated.
func (s *Session) GenerateQuiz(ctx context.Context, id notes.SectionID) (quiz.Quiz, error) {
	if s.gen == nil {
		return quiz.Quiz{}, fmt.Errorf("%w: no generator configured", domain.ErrQuizGenerationFailure)
	}
	sec, ok := s.doc.Section(id)
	if !ok {
		return quiz.Quiz{}, fmt.Errorf("%w: %d", domain.ErrSectionNotFound, id)
	}

	s.mu.Lock()
	row, err := s.sectionLocked(id)
	if err != nil {
		s.mu.Unlock()
		return quiz.Quiz{}, err
	}
	s.nextToken++
	token := s.nextToken
	next, err := row.Quiz.BeginGeneration(token)
	if err != nil {
		s.mu.Unlock()
		return quiz.Quiz{}, err
	}
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.QuizTimeout)
	abortCtx, abort := context.WithCancelCause(genCtx)
	s.inflight[id] = inflight{token: token, cancel: func() { abort(errGenerationAborted) }}
	s.mu.Unlock()

	defer cancel()
	defer abort(nil)

	start := time.Now()
	gen, genErr := s.gen.Generate(abortCtx, quiz.Request{
		Topic:      sec.Title(),
		Difficulty: s.cfg.QuizDifficulty,
		Count:      s.cfg.QuizQuestionCount,
		Content:    sec.QuizSource(),
	})
	metrics.QuizGenerationDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.inflight[id]; ok && f.token == token {
		delete(s.inflight, id)
	}
	row, _ = s.table.Row(id)

	if genErr != nil {
		if next, aborted := row.Quiz.Abort(token); aborted {
			s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })
		}
		status := "error"
		if errors.Is(context.Cause(abortCtx), errGenerationAborted) {
			status = "cancelled"
		}
		metrics.QuizGenerationsTotal.WithLabelValues(status).Inc()
		s.logger.Warn("Quiz generation failed",
			zap.Int("section", int(id)),
			zap.String("status", status),
			zap.Error(genErr),
		)
		return quiz.Quiz{}, fmt.Errorf("%w: %w", domain.ErrQuizGenerationFailure, genErr)
	}

	q := quiz.New(id, sec.Title(), s.cfg.QuizDifficulty, gen.Questions, s.now())
	next, installed := row.Quiz.Complete(token, q)
	if !installed {
		metrics.QuizGenerationsTotal.WithLabelValues("discarded").Inc()
		return quiz.Quiz{}, fmt.Errorf("%w: %w", domain.ErrQuizGenerationFailure, errGenerationAborted)
	}
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })
	metrics.QuizGenerationsTotal.WithLabelValues("ok").Inc()

	s.logger.Info("Quiz generated",
		zap.Int("section", int(id)),
		zap.String("quiz_id", q.ID()),
		zap.Int("questions", q.Len()),
		zap.Int("total_points", q.TotalPoints()),
	)
	return q, nil
}

// CancelQuizGeneration aborts the in-flight generation of section id and
// returns the section to NotGenerated. It reports whether a request was aborted.
func (s *Session) CancelQuizGeneration(id notes.SectionID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.sectionLocked(id)
	if err != nil {
		return false, err
	}
	f, ok := s.inflight[id]
	if !ok {
		return false, nil
	}
	delete(s.inflight, id)
	if next, aborted := row.Quiz.Abort(f.token); aborted {
		s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })
	}
	f.cancel()
	return true, nil
}

// QuizState returns the quiz state of section id.
func (s *Session) QuizState(id notes.SectionID) (quiz.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.sectionLocked(id)
	if err != nil {
		return quiz.State{}, err
	}
	return row.Quiz, nil
}

// AnswerQuestion records the answer to question index of section id's quiz.
func (s *Session) AnswerQuestion(id notes.SectionID, index int, answer string) error {
	return s.updateQuiz(id, func(st quiz.State) (quiz.State, error) {
		return st.Answer(index, answer)
	})
}

// SubmitQuiz grades section id's quiz. Every question must have a non-blank answer.
func (s *Session) SubmitQuiz(id notes.SectionID) (quiz.Result, error) {
	var res quiz.Result
	err := s.updateQuiz(id, func(st quiz.State) (quiz.State, error) {
		next, r, err := st.Submit()
		res = r
		return next, err
	})
	if err != nil {
		return quiz.Result{}, err
	}

	metrics.QuizSubmissionsTotal.Inc()
	metrics.QuizScorePercent.Observe(float64(res.Percentage))
	s.logger.Info("Quiz submitted",
		zap.Int("section", int(id)),
		zap.Int("score", res.Score),
		zap.Int("total_points", res.TotalPoints),
		zap.Int("percentage", res.Percentage),
	)
	return res, nil
}

// ResetQuiz clears section id's answers for a retake. Other sections are untouched.
func (s *Session) ResetQuiz(id notes.SectionID) error {
	return s.updateQuiz(id, func(st quiz.State) (quiz.State, error) {
		return st.Reset()
	})
}

// SetQuizVisibility sets the quiz and results panel toggles of section id.
// A nil argument leaves that toggle unchanged.
func (s *Session) SetQuizVisibility(id notes.SectionID, showQuiz, showResults *bool) error {
	return s.updateQuiz(id, func(st quiz.State) (quiz.State, error) {
		return st.WithVisibility(showQuiz, showResults), nil
	})
}

func (s *Session) updateQuiz(id notes.SectionID, fn func(quiz.State) (quiz.State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.sectionLocked(id)
	if err != nil {
		return err
	}
	next, err := fn(row.Quiz)
	if err != nil {
		return err
	}
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })
	return nil
}
