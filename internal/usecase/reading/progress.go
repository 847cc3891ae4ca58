package reading

import (
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// MarkRead records that section id was read. Marking an already read section
// is a no-op. When the last unread section is marked, the completion event
// fires; it fires at most once per session.
func (s *Session) MarkRead(id notes.SectionID) error {
	s.mu.Lock()
	row, err := s.sectionLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if row.Progress.Read {
		s.mu.Unlock()
		return nil
	}
	s.markReadLocked(id)
	s.mu.Unlock()
	return nil
}

// markReadLocked sets the read flag and queues the resulting events. Caller
// holds mu and has validated id.
func (s *Session) markReadLocked(id notes.SectionID) {
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Progress.Read = true })
	metrics.SectionsReadTotal.Inc()

	completedNow := false
	if !s.completed && s.table.ReadCount() == s.doc.Len() {
		s.completed = true
		completedNow = true
	}

	s.emit.send(event{kind: eventProgress, snap: s.progressLocked()})
	if completedNow {
		metrics.CompletionsTotal.Inc()
		s.emit.send(event{kind: eventComplete})
		s.logger.Info("Material completed",
			zap.String("user_id", s.owner.UserID),
			zap.String("material_ref", s.owner.MaterialRef),
		)
	}
}

// ToggleStar flips the star on section id and returns the new value.
func (s *Session) ToggleStar(id notes.SectionID) (bool, error) {
	s.mu.Lock()
	row, err := s.sectionLocked(id)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	starred := !row.Progress.Starred
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Progress.Starred = starred })
	snap := s.progressLocked()
	s.mu.Unlock()

	s.emit.send(event{kind: eventProgress, snap: snap})
	return starred, nil
}

// SetNote replaces the learner's note on section id. An empty text clears it.
func (s *Session) SetNote(id notes.SectionID, text string) error {
	s.mu.Lock()
	row, err := s.sectionLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if row.Progress.Note == text {
		s.mu.Unlock()
		return nil
	}
	s.table = s.table.With(id, func(r *section.RuntimeState) { r.Progress.Note = text })
	snap := s.progressLocked()
	s.mu.Unlock()

	s.emit.send(event{kind: eventProgress, snap: snap})
	return nil
}
