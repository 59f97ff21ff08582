// Package realtime connects local trip state to the document store: it owns
// the debounced write-back path and the change subscription that feeds remote
// edits (including this process's own echoes) back into local state.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// QueueState is the write queue's position in its debounce cycle.
type QueueState int

const (
	// QueueIdle means no write is pending or running.
	QueueIdle QueueState = iota
	// QueueScheduled means a write will start once the quiet period elapses.
	// Another mutation during this window re-arms the timer.
	QueueScheduled
	// QueueInFlight means a write is running. It is never cancelled; a
	// mutation arriving now schedules a superseding write for afterwards.
	QueueInFlight
)

func (s QueueState) String() string {
	switch s {
	case QueueIdle:
		return "idle"
	case QueueScheduled:
		return "scheduled"
	case QueueInFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// DefaultWriteDelay is the quiet period after the last mutation before the
// queue writes. Rapid interactive edits coalesce into roughly one write per
// second of inactivity.
const DefaultWriteDelay = time.Second

// WriteQueue debounces remote writes with a trailing edge: every Notify
// restarts the quiet-period timer, and only silence lets the write fire.
// At most one write is in flight; at most one superseding write is pending
// behind it.
type WriteQueue struct {
	delay   time.Duration
	write   func(context.Context) error
	onError func(error)
	log     *slog.Logger

	mu      sync.Mutex
	state   QueueState
	rearm   bool // mutation arrived while in flight
	timer   *time.Timer
	closed  bool
	writeWG sync.WaitGroup
}

// NewWriteQueue builds a stopped queue. write performs the actual save;
// onError is called with every failed write's error (may be nil).
func NewWriteQueue(delay time.Duration, write func(context.Context) error, onError func(error), log *slog.Logger) *WriteQueue {
	if delay <= 0 {
		delay = DefaultWriteDelay
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &WriteQueue{delay: delay, write: write, onError: onError, log: log}
}

// Notify records that local state changed and (re)schedules the debounced
// write.
func (q *WriteQueue) Notify() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	switch q.state {
	case QueueIdle:
		q.state = QueueScheduled
		q.timer = time.AfterFunc(q.delay, q.fire)
	case QueueScheduled:
		q.timer.Reset(q.delay)
	case QueueInFlight:
		q.rearm = true
	}
}

// State returns the queue's current state.
func (q *WriteQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *WriteQueue) fire() {
	q.mu.Lock()
	if q.closed || q.state != QueueScheduled {
		q.mu.Unlock()
		return
	}
	q.state = QueueInFlight
	q.writeWG.Add(1)
	q.mu.Unlock()

	go q.run()
}

func (q *WriteQueue) run() {
	defer q.writeWG.Done()

	if err := q.write(context.Background()); err != nil {
		q.log.Error("debounced write failed", "error", err)
		q.onError(err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.state = QueueIdle
		return
	}
	if q.rearm {
		q.rearm = false
		q.state = QueueScheduled
		q.timer = time.AfterFunc(q.delay, q.fire)
		return
	}
	q.state = QueueIdle
}

// Flush runs any pending write immediately and waits for it. Used on
// shutdown so the last edits are not lost to the debounce window.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	pending := q.state == QueueScheduled
	if pending {
		q.timer.Stop()
		q.state = QueueIdle
	}
	q.mu.Unlock()

	// Wait out an in-flight write first so writes never overlap.
	q.writeWG.Wait()

	if !pending {
		return nil
	}
	return q.write(ctx)
}

// Close stops the timer and waits for an in-flight write. A scheduled but
// not yet started write is dropped; call Flush first to keep it.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.mu.Unlock()

	q.writeWG.Wait()
}
