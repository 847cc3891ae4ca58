package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// Kind is what an utterance reads.
type Kind string

const (
	KindSection   Kind = "section"
	KindSummary   Kind = "summary"
	KindKeyPoints Kind = "key_points"
)

// Target identifies the utterance subject. Section is only meaningful for KindSection.
type Target struct {
	Kind    Kind
	Section notes.SectionID
}

// EventKind is the life cycle step of an utterance.
type EventKind string

const (
	EventStart     EventKind = "start"
	EventEnd       EventKind = "end"
	EventError     EventKind = "error"
	EventCancelled EventKind = "cancelled"
)

// Event reports an utterance life cycle step.
type Event struct {
	Kind   EventKind
	Target Target
	Seq    uint64
	Err    error
	At     time.Time
}

// ClipStore keeps the finished clip of a session for playback.
type ClipStore interface {
	Save(ctx context.Context, sessionID string, clip domain.Audio) error
	Load(ctx context.Context, sessionID string) (domain.Audio, error)
	Delete(ctx context.Context, sessionID string) error
}

var errStopped = errors.New("narration stopped")

type utterance struct {
	seq    uint64
	target Target
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Narrator owns the single speech utterance of one session. Starting a new
// utterance stops the current one first, so at most one target is active.
type Narrator struct {
	sessionID string
	synth     domain.Synthesizer
	clips     ClipStore
	voice     domain.Voice
	timeout   time.Duration
	logger    *zap.Logger
	onEvent   func(Event)

	mu     sync.Mutex
	seq    uint64
	active *utterance
	latest *utterance
	last   Event
	closed bool
}

// Config holds the speech parameters of a Narrator.
type Config struct {
	Voice   domain.Voice
	Timeout time.Duration
}

// NewNarrator creates a narrator for sessionID. onEvent, when not nil, is
// called for every event from the utterance goroutine.
func NewNarrator(
	sessionID string, synth domain.Synthesizer, clips ClipStore,
	cfg Config, onEvent func(Event), logger *zap.Logger,
) *Narrator {
	return &Narrator{
		sessionID: sessionID,
		synth:     synth,
		clips:     clips,
		voice:     cfg.Voice,
		timeout:   cfg.Timeout,
		onEvent:   onEvent,
		logger:    logger.With(zap.String("session_id", sessionID)),
	}
}

// Start stops the current utterance and begins speaking text for target. It
// returns the utterance sequence number without waiting for synthesis.
func (n *Narrator) Start(target Target, text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: nothing to read", domain.ErrNarrationUnavailable)
	}
	if n.synth == nil {
		return 0, fmt.Errorf("%w: no synthesizer configured", domain.ErrNarrationUnavailable)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return 0, domain.ErrSessionNotFound
	}
	n.stopLocked()
	n.seq++
	ctx, cancel := context.WithCancelCause(context.Background())
	u := &utterance{seq: n.seq, target: target, cancel: cancel, done: make(chan struct{})}
	n.active = u
	n.latest = u
	n.mu.Unlock()

	n.emit(Event{Kind: EventStart, Target: target, Seq: u.seq})
	go n.speak(ctx, u, text)
	return u.seq, nil
}

func (n *Narrator) speak(ctx context.Context, u *utterance, text string) {
	defer close(u.done)
	defer u.cancel(nil)

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	clip, err := n.synth.Speak(ctx, text, n.voice)
	if err == nil && n.clips != nil {
		err = n.clips.Save(ctx, n.sessionID, clip)
	}

	ev := Event{Kind: EventEnd, Target: u.target, Seq: u.seq}
	switch {
	case errors.Is(context.Cause(ctx), errStopped):
		ev.Kind = EventCancelled
	case err != nil:
		ev.Kind = EventError
		ev.Err = fmt.Errorf("%w: %w", domain.ErrNarrationUnavailable, err)
	}

	n.mu.Lock()
	if n.active == u {
		n.active = nil
	}
	n.recordLocked(&ev)
	n.mu.Unlock()
	n.notify(ev)
}

// Stop cancels the current utterance. It reports whether one was active.
func (n *Narrator) Stop() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopLocked()
}

func (n *Narrator) stopLocked() bool {
	if n.active == nil {
		return false
	}
	n.active.cancel(errStopped)
	n.active = nil
	return true
}

// Active returns the target being read, if any.
func (n *Narrator) Active() (Target, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active == nil {
		return Target{}, false
	}
	return n.active.target, true
}

// Last returns the most recent event.
func (n *Narrator) Last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Wait blocks until utterance seq has finished and its final event was
// delivered, or ctx is done. It returns at once for superseded utterances.
func (n *Narrator) Wait(ctx context.Context, seq uint64) error {
	n.mu.Lock()
	u := n.latest
	n.mu.Unlock()
	if u == nil || u.seq != seq {
		return nil
	}
	select {
	case <-u.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clip returns the last finished clip of the session.
func (n *Narrator) Clip(ctx context.Context) (domain.Audio, error) {
	if n.clips == nil {
		return domain.Audio{}, domain.ErrClipNotFound
	}
	clip, err := n.clips.Load(ctx, n.sessionID)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("load clip: %w", err)
	}
	return clip, nil
}

// Close stops the current utterance and drops the stored clip. Start fails afterwards.
func (n *Narrator) Close(ctx context.Context) {
	n.mu.Lock()
	n.closed = true
	n.stopLocked()
	n.mu.Unlock()

	if n.clips == nil {
		return
	}
	if err := n.clips.Delete(ctx, n.sessionID); err != nil {
		n.logger.Warn("Failed to delete narration clip", zap.Error(err))
	}
}

func (n *Narrator) emit(ev Event) {
	n.mu.Lock()
	n.recordLocked(&ev)
	n.mu.Unlock()
	n.notify(ev)
}

func (n *Narrator) recordLocked(ev *Event) {
	ev.At = time.Now()
	if ev.Seq >= n.last.Seq {
		n.last = *ev
	}
}

func (n *Narrator) notify(ev Event) {
	metrics.NarrationsTotal.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == EventError {
		n.logger.Warn("Narration failed",
			zap.String("target", string(ev.Target.Kind)),
			zap.Int("section", int(ev.Target.Section)),
			zap.Error(ev.Err),
		)
	}
	if n.onEvent != nil {
		n.onEvent(ev)
	}
}
