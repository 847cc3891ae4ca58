package reading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/domain/search"
	"github.com/excellencecoachinghub/notesreader/internal/domain/section"
	"github.com/excellencecoachinghub/notesreader/internal/domain/window"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// Config holds the per-session policy.
type Config struct {
	Window            window.Config
	HighlightMaxChars int
	TickInterval      time.Duration
	QuizTimeout       time.Duration
	QuizDifficulty    string
	QuizQuestionCount int
}

// DefaultConfig returns the standard session policy.
func DefaultConfig() Config {
	return Config{
		Window:            window.DefaultConfig(),
		HighlightMaxChars: search.DefaultHighlightMaxChars,
		TickInterval:      time.Second,
		QuizTimeout:       60 * time.Second,
		QuizDifficulty:    quiz.DefaultDifficulty,
		QuizQuestionCount: quiz.DefaultQuestionCount,
	}
}

type inflight struct {
	token  uint64
	cancel context.CancelFunc
}

// Session is one learner's reading session over one document. It is safe for
// concurrent use. Per-section state lives in a copy-on-write table that is
// swapped under mu.
type Session struct {
	id     string
	owner  progress.Owner
	doc    notes.Document
	cfg    Config
	gen    quiz.Generator
	emit   *emitter
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	table      section.Table
	view       search.View
	timeSpent  time.Duration
	completed  bool
	bookmarked bool
	nextToken  uint64
	inflight   map[notes.SectionID]inflight
	closed     bool
}

// New opens a session over doc. prior, when not nil, seeds the progress
// recorded by earlier sessions. gen and sink may be nil.
func New(
	id string, owner progress.Owner, doc notes.Document, prior *progress.Snapshot,
	cfg Config, gen quiz.Generator, sink ProgressSink, logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id))

	table := window.Initial(section.NewTable(doc.Len()), cfg.Window)
	s := &Session{
		id:       id,
		owner:    owner,
		doc:      doc,
		cfg:      cfg,
		gen:      gen,
		emit:     newEmitter(sink, owner, logger),
		logger:   logger,
		now:      time.Now,
		table:    table,
		view:     search.Unfiltered(&doc),
		inflight: make(map[notes.SectionID]inflight),
	}

	if prior != nil {
		s.table = progress.Seed(s.table, *prior)
		s.timeSpent = time.Duration(prior.TimeSpentSeconds) * time.Second
		s.completed = prior.Completed
		s.bookmarked = prior.Bookmarked
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the learner and material of the session.
func (s *Session) Owner() progress.Owner { return s.owner }

// Document returns the immutable document being read.
func (s *Session) Document() *notes.Document { return &s.doc }

// Table returns a consistent snapshot of the per-section state.
func (s *Session) Table() section.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Run drives the time-spent ticker until ctx is cancelled or the session is closed.
func (s *Session) Run(ctx context.Context) {
	if s.cfg.TickInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Tick(s.cfg.TickInterval) {
				return
			}
		}
	}
}

// Tick adds elapsed to the time spent and forwards the running total. It
// reports false once the session is closed.
func (s *Session) Tick(elapsed time.Duration) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.timeSpent += elapsed
	seconds := int64(s.timeSpent / time.Second)
	s.mu.Unlock()

	s.emit.send(event{kind: eventTimeSpent, seconds: seconds})
	return true
}

// Search commits query and replaces the active view. A blank query restores
// the unfiltered view; the stored window is untouched either way.
func (s *Session) Search(ctx context.Context, query string) (search.View, error) {
	if err := s.checkOpen(); err != nil {
		return search.View{}, err
	}

	start := time.Now()
	view, err := search.Run(ctx, &s.doc, query)
	if err != nil {
		return search.View{}, fmt.Errorf("search: %w", err)
	}
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	switch {
	case !view.IsFiltered():
		metrics.SearchesTotal.WithLabelValues("reset").Inc()
	case view.Len() == 0:
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
	default:
		metrics.SearchesTotal.WithLabelValues("match").Inc()
	}

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	s.logger.Debug("Search committed",
		zap.String("query", view.Query()),
		zap.Int("matches", view.Len()),
	)
	return view, nil
}

// View returns the active search view.
func (s *Session) View() search.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Snapshot is a read-only picture of the whole session.
type Snapshot struct {
	ID         string
	Owner      progress.Owner
	Title      string
	Summary    string
	KeyPoints  []string
	Metadata   notes.Metadata
	Query      string
	Matches    []search.Entry
	Rendered   window.Rendered
	Rows       []section.RuntimeState
	ReadCount  int
	Percent    int
	TimeSpent  time.Duration
	Completed  bool
	Bookmarked bool
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	table, view := s.table, s.view
	timeSpent, completed, bookmarked := s.timeSpent, s.completed, s.bookmarked
	s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		Owner:      s.owner,
		Title:      s.doc.Title(),
		Summary:    s.doc.Summary(),
		KeyPoints:  s.doc.KeyPoints(),
		Metadata:   s.doc.Metadata(),
		Query:      view.Query(),
		Rendered:   window.Render(table, &view, s.cfg.Window),
		Rows:       table.Rows(),
		ReadCount:  table.ReadCount(),
		Percent:    progress.Percent(table.ReadCount(), table.Len()),
		TimeSpent:  timeSpent,
		Completed:  completed,
		Bookmarked: bookmarked,
	}
	if view.IsFiltered() {
		snap.Matches = view.Entries()
	}
	return snap
}

// Detail is one section with its runtime state and highlighted text for the
// active query.
type Detail struct {
	Section   notes.Section
	State     section.RuntimeState
	Tier      search.Tier
	Title     []search.Fragment
	Content   []search.Fragment
	KeyPoints [][]search.Fragment
}

// SectionDetail returns section id with highlights for the active query.
func (s *Session) SectionDetail(id notes.SectionID) (Detail, error) {
	sec, ok := s.doc.Section(id)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %d", domain.ErrSectionNotFound, id)
	}

	s.mu.Lock()
	row, _ := s.table.Row(id)
	view := s.view
	s.mu.Unlock()

	q := view.Query()
	limit := s.cfg.HighlightMaxChars
	d := Detail{
		Section: sec,
		State:   row,
		Tier:    view.Tier(id),
		Title:   search.Highlight(sec.Title(), q, limit),
		Content: search.Highlight(sec.Content(), q, limit),
	}
	for _, kp := range sec.KeyPoints() {
		d.KeyPoints = append(d.KeyPoints, search.Highlight(kp, q, limit))
	}
	return d, nil
}

// ToggleBookmark flips the session bookmark and returns the new value.
func (s *Session) ToggleBookmark() (bool, error) {
	s.mu.Lock()
	if err := s.openLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.bookmarked = !s.bookmarked
	on := s.bookmarked
	snap := s.progressLocked()
	s.mu.Unlock()

	s.emit.send(event{kind: eventProgress, snap: snap})
	return on, nil
}

// Close cancels in-flight quiz generation, emits the final progress and waits
// for queued events to reach the sink or for ctx to expire. Repeated calls are
// no-ops.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, f := range s.inflight {
		if st, ok := s.table.Row(id); ok {
			if next, aborted := st.Quiz.Abort(f.token); aborted {
				s.table = s.table.With(id, func(r *section.RuntimeState) { r.Quiz = next })
			}
		}
		f.cancel()
	}
	s.inflight = map[notes.SectionID]inflight{}
	seconds := int64(s.timeSpent / time.Second)
	snap := s.progressLocked()
	s.mu.Unlock()

	s.emit.send(event{kind: eventTimeSpent, seconds: seconds})
	s.emit.send(event{kind: eventProgress, snap: snap})
	s.emit.close(ctx)

	s.logger.Info("Session closed",
		zap.Int("read", len(snap.ReadSections)),
		zap.Int64("time_spent_seconds", seconds),
	)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Session) openLocked() error {
	if s.closed {
		return domain.ErrSessionNotFound
	}
	return nil
}

// progressLocked captures the persisted progress. Caller holds mu.
func (s *Session) progressLocked() progress.Snapshot {
	return progress.FromTable(s.table, int64(s.timeSpent/time.Second), s.completed, s.bookmarked, s.now())
}

// sectionLocked validates id and returns its row. Caller holds mu.
func (s *Session) sectionLocked(id notes.SectionID) (section.RuntimeState, error) {
	if err := s.openLocked(); err != nil {
		return section.RuntimeState{}, err
	}
	row, ok := s.table.Row(id)
	if !ok {
		return section.RuntimeState{}, fmt.Errorf("%w: %d", domain.ErrSectionNotFound, id)
	}
	return row, nil
}
