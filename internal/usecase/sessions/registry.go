package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/narration"
	"github.com/excellencecoachinghub/notesreader/internal/usecase/reading"
)

// Config holds registry and per-session policy.
type Config struct {
	Reading         reading.Config
	Narration       narration.Config
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Entry is an open session with its narrator.
type Entry struct {
	Session  *reading.Session
	Narrator *narration.Narrator

	stop       context.CancelFunc
	lastAccess time.Time
}

// NarrateSection reads section id aloud.
func (e *Entry) NarrateSection(id notes.SectionID) (uint64, error) {
	sec, ok := e.Session.Document().Section(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", domain.ErrSectionNotFound, id)
	}
	return e.Narrator.Start(narration.Target{Kind: narration.KindSection, Section: id}, narration.SectionText(&sec))
}

// NarrateSummary reads the document summary aloud.
func (e *Entry) NarrateSummary() (uint64, error) {
	return e.Narrator.Start(narration.Target{Kind: narration.KindSummary}, e.Session.Document().Summary())
}

// NarrateKeyPoints reads the numbered document key points aloud.
func (e *Entry) NarrateKeyPoints() (uint64, error) {
	return e.Narrator.Start(narration.Target{Kind: narration.KindKeyPoints},
		narration.KeyPointsText(e.Session.Document().KeyPoints()))
}

// Registry owns the open sessions and evicts idle ones.
type Registry struct {
	loader   DocumentLoader
	progress ProgressStore
	gen      quiz.Generator
	synth    domain.Synthesizer
	clips    narration.ClipStore
	cfg      Config
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
	closed  bool
}

// New creates a registry. progress, gen, synth and clips may be nil.
func New(
	loader DocumentLoader, progressStore ProgressStore, gen quiz.Generator,
	synth domain.Synthesizer, clips narration.ClipStore, cfg Config, logger *zap.Logger,
) *Registry {
	return &Registry{
		loader:   loader,
		progress: progressStore,
		gen:      gen,
		synth:    synth,
		clips:    clips,
		cfg:      cfg,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
		entries:  make(map[string]*Entry),
	}
}

// Open loads the material of owner, seeds it with stored progress and starts
// a new session.
func (r *Registry) Open(ctx context.Context, owner progress.Owner) (*Entry, error) {
	owner.UserID = strings.TrimSpace(owner.UserID)
	owner.MaterialRef = strings.TrimSpace(owner.MaterialRef)
	if owner.MaterialRef == "" {
		return nil, fmt.Errorf("%w: material reference is required", domain.ErrNoData)
	}

	doc, err := r.loader.Load(ctx, owner.MaterialRef)
	if err != nil {
		return nil, fmt.Errorf("load material: %w", err)
	}

	var prior *progress.Snapshot
	var sink reading.ProgressSink
	// Anonymous sessions are neither seeded nor persisted.
	if r.progress != nil && owner.UserID != "" {
		sink = r.progress
		prior, err = r.progress.Load(ctx, owner)
		if err != nil {
			r.logger.Warn("Failed to load prior progress, starting fresh",
				zap.String("user_id", owner.UserID),
				zap.String("material_ref", owner.MaterialRef),
				zap.Error(err),
			)
			prior = nil
		}
	}

	id := r.newID()
	sess := reading.New(id, owner, doc, prior, r.cfg.Reading, r.gen, sink, r.logger)
	narr := narration.NewNarrator(id, r.synth, r.clips, r.cfg.Narration, r.narrationEvent(id), r.logger)

	runCtx, stop := context.WithCancel(context.Background())
	e := &Entry{Session: sess, Narrator: narr, stop: stop, lastAccess: r.now()}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		stop()
		return nil, domain.ErrSessionNotFound
	}
	r.entries[id] = e
	n := len(r.entries)
	r.mu.Unlock()

	go sess.Run(runCtx)
	metrics.ActiveSessions.Set(float64(n))

	r.logger.Info("Session opened",
		zap.String("session_id", id),
		zap.String("user_id", owner.UserID),
		zap.String("material_ref", owner.MaterialRef),
		zap.Int("sections", doc.Len()),
		zap.Bool("resumed", prior != nil),
	)
	return e, nil
}

// Get returns session id and refreshes its idle timer.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	e.lastAccess = r.now()
	return e, nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close removes session id, flushes its progress and stops its narration.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	metrics.ActiveSessions.Set(float64(n))
	r.closeEntry(ctx, e)
	return nil
}

// Cleanup closes sessions idle for longer than the TTL and returns how many
// were evicted.
func (r *Registry) Cleanup(ctx context.Context) int {
	if r.cfg.TTL <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.now()
	var expired []*Entry
	for id, e := range r.entries {
		if now.Sub(e.lastAccess) > r.cfg.TTL {
			expired = append(expired, e)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	metrics.ActiveSessions.Set(float64(n))
	for _, e := range expired {
		r.closeEntry(ctx, e)
	}
	r.logger.Info("Idle sessions evicted", zap.Int("count", len(expired)))
	return len(expired)
}

// Run evicts idle sessions on every cleanup interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup(ctx)
		}
	}
}

// Shutdown closes every session and rejects new ones. Sessions flush their
// progress until ctx expires.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = map[string]*Entry{}
	r.mu.Unlock()

	metrics.ActiveSessions.Set(0)
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Go(func() { r.closeEntry(ctx, e) })
	}
	wg.Wait()
	r.logger.Info("Sessions shut down", zap.Int("count", len(entries)))
}

func (r *Registry) closeEntry(ctx context.Context, e *Entry) {
	e.stop()
	e.Narrator.Close(ctx)
	e.Session.Close(ctx)
}

func (r *Registry) narrationEvent(id string) func(narration.Event) {
	return func(ev narration.Event) {
		r.logger.Debug("Narration event",
			zap.String("session_id", id),
			zap.String("event", string(ev.Kind)),
			zap.String("target", string(ev.Target.Kind)),
			zap.Uint64("seq", ev.Seq),
		)
	}
}
