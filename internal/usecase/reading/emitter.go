package reading

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain/progress"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

const sinkCallTimeout = 5 * time.Second

type eventKind string

const (
	eventTimeSpent eventKind = "time_spent"
	eventComplete  eventKind = "complete"
	eventProgress  eventKind = "progress"
)

type event struct {
	kind    eventKind
	seconds int64
	snap    progress.Snapshot
}

// emitter delivers progress events to the sink in order on a single worker.
// Sends never block and nothing is dropped. A pending time-spent event absorbs
// later totals, and a progress snapshot at the tail of the queue is replaced
// by a newer one, so a stalled sink keeps the queue short.
type emitter struct {
	sink   ProgressSink
	owner  progress.Owner
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	pending []event
	wake    chan struct{}
	done    chan struct{}
}

func newEmitter(sink ProgressSink, owner progress.Owner, logger *zap.Logger) *emitter {
	e := &emitter{
		sink:   sink,
		owner:  owner,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *emitter) send(ev event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if !e.coalesceLocked(ev) {
		e.pending = append(e.pending, ev)
	}
	e.mu.Unlock()
	e.signal()
}

func (e *emitter) coalesceLocked(ev event) bool {
	switch ev.kind {
	case eventTimeSpent:
		for i := range e.pending {
			if e.pending[i].kind == eventTimeSpent {
				e.pending[i].seconds = max(e.pending[i].seconds, ev.seconds)
				metrics.ProgressEventsTotal.WithLabelValues(string(ev.kind), "coalesced").Inc()
				return true
			}
		}
	case eventProgress:
		if n := len(e.pending); n > 0 && e.pending[n-1].kind == eventProgress {
			e.pending[n-1].snap = ev.snap
			metrics.ProgressEventsTotal.WithLabelValues(string(ev.kind), "coalesced").Inc()
			return true
		}
	}
	return false
}

func (e *emitter) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// next blocks until an event is queued. It reports false once the emitter is
// closed and the queue is drained.
func (e *emitter) next() (event, bool) {
	for {
		e.mu.Lock()
		if len(e.pending) > 0 {
			ev := e.pending[0]
			e.pending[0] = event{}
			e.pending = e.pending[1:]
			e.mu.Unlock()
			return ev, true
		}
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return event{}, false
		}
		<-e.wake
	}
}

func (e *emitter) run() {
	defer close(e.done)
	for {
		ev, ok := e.next()
		if !ok {
			return
		}
		e.deliver(ev)
	}
}

func (e *emitter) deliver(ev event) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkCallTimeout)
	defer cancel()

	var err error
	switch ev.kind {
	case eventTimeSpent:
		err = e.sink.OnTimeSpent(ctx, e.owner, ev.seconds)
	case eventComplete:
		err = e.sink.OnComplete(ctx, e.owner)
	case eventProgress:
		err = e.sink.OnProgressUpdate(ctx, e.owner, ev.snap)
	}

	status := "ok"
	if err != nil {
		status = "error"
		e.logger.Warn("Progress sink call failed",
			zap.String("event", string(ev.kind)),
			zap.String("user_id", e.owner.UserID),
			zap.String("material_ref", e.owner.MaterialRef),
			zap.Error(err),
		)
	}
	metrics.ProgressEventsTotal.WithLabelValues(string(ev.kind), status).Inc()
}

// close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (e *emitter) close(ctx context.Context) {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.signal()

	select {
	case <-e.done:
	case <-ctx.Done():
		e.logger.Warn("Progress flush interrupted", zap.Error(ctx.Err()))
	}
}
