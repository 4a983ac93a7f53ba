// Package reporting delivers attempt records to external sinks on a
// background worker. Delivery is best effort: a full queue drops the record
// and a failed send is logged and never retried.
package reporting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ullas/internal/game"
	"ullas/internal/metrics"
)

// Sink delivers one attempt record
type Sink interface {
	Name() string
	Send(ctx context.Context, a game.Attempt) error
}

// Async implements game.Reporter with a bounded queue
type Async struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan game.Attempt
	done   chan struct{}
}

// Option configures an Async reporter
type Option func(*Async)

// WithSendTimeout bounds each Send call
func WithSendTimeout(d time.Duration) Option { return func(a *Async) { a.timeout = d } }

// WithMetrics counts sent, failed and dropped records
func WithMetrics(m *metrics.Metrics) Option { return func(a *Async) { a.metrics = m } }

// NewAsync starts the worker. size is the queue capacity.
func NewAsync(size int, logger *slog.Logger, sinks []Sink, opts ...Option) *Async {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		sinks:   sinks,
		timeout: 5 * time.Second,
		logger:  logger.With("component", "reporting"),
		queue:   make(chan game.Attempt, size),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Report enqueues a without blocking
func (a *Async) Report(att game.Attempt) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- att:
	default:
		for _, s := range a.sinks {
			a.metrics.AttemptReport(s.Name(), "dropped")
		}
		a.logger.Warn("attempt queue full, dropping report", "session_id", att.SessionID, "answers", len(att.Answers))
	}
}

func (a *Async) run() {
	defer close(a.done)
	for att := range a.queue {
		for _, s := range a.sinks {
			a.send(s, att)
		}
	}
}

func (a *Async) send(s Sink, att game.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := s.Send(ctx, att); err != nil {
		a.metrics.AttemptReport(s.Name(), "failed")
		a.logger.Warn("attempt report failed", "sink", s.Name(), "session_id", att.SessionID, "error", err)
		return
	}
	a.metrics.AttemptReport(s.Name(), "sent")
}

// Close stops accepting reports and waits for the queue to drain or ctx to
// end
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
