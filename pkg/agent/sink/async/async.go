// Package async wraps a sink with a bounded background queue, for a host
// that wants captures to never add latency to its own request path even
// when the wrapped sink is slow (a custom HTTP sink, a chatty stderr sink
// under WithVerbose, etc). Grounded on the teacher's sinks/async package;
// generalized from one flat aisen.ErrorEvent to the two tagged record kinds
// sink.Sink carries, and from Write/Flush/Close to SendException/SendSnapshot
// plus a bare Close (the Sink interface itself has no Flush/Close — those
// are async's own concern, not every sink's).
package async

import (
	"context"
	"sync"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

// Option configures the async sink.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued records (default 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when records are dropped due to
// queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) { c.onDropped = fn }
}

type entryKind int

const (
	kindException entryKind = iota
	kindSnapshot
)

type entry struct {
	kind     entryKind
	exc      record.ExceptionRecord
	snapshot record.SnapshotRecord
}

// Sink wraps an inner sink.Sink with a bounded async queue. SendException
// and SendSnapshot return as soon as the record is enqueued; a background
// goroutine drains the queue into the inner sink. When the queue is full,
// the oldest entry is dropped to make room for the new one.
type Sink struct {
	inner sink.Sink
	queue chan entry
	done  chan struct{}

	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup

	onDropped func(count int)
}

// New wraps inner with a bounded queue and starts its drain goroutine.
func New(inner sink.Sink, opts ...Option) *Sink {
	cfg := &config{queueSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Sink{
		inner:     inner,
		queue:     make(chan entry, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
	}
	s.wg.Add(1)
	go s.processLoop()
	return s
}

func (s *Sink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case e, ok := <-s.queue:
			if !ok {
				return
			}
			s.deliver(e)
		case <-s.done:
			for {
				select {
				case e, ok := <-s.queue:
					if !ok {
						return
					}
					s.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) deliver(e entry) {
	switch e.kind {
	case kindException:
		_ = s.inner.SendException(context.Background(), e.exc)
	case kindSnapshot:
		_ = s.inner.SendSnapshot(context.Background(), e.snapshot)
	}
}

// SendException enqueues rec for background delivery. Always returns nil
// once the sink is open; ctx is not consulted since the call never blocks
// on I/O.
func (s *Sink) SendException(ctx context.Context, rec record.ExceptionRecord) error {
	return s.enqueue(entry{kind: kindException, exc: rec})
}

// SendSnapshot enqueues rec for background delivery.
func (s *Sink) SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error {
	return s.enqueue(entry{kind: kindSnapshot, snapshot: rec})
}

func (s *Sink) enqueue(e entry) error {
	s.closeMu.Lock()
	closed := s.closed
	s.closeMu.Unlock()
	if closed {
		return nil
	}

	select {
	case s.queue <- e:
		return nil
	default:
		s.dropOldestAndEnqueue(e)
		return nil
	}
}

func (s *Sink) dropOldestAndEnqueue(e entry) {
	select {
	case <-s.queue:
		if s.onDropped != nil {
			s.onDropped(1)
		}
	default:
	}

	select {
	case s.queue <- e:
	default:
		if s.onDropped != nil {
			s.onDropped(1)
		}
	}
}

// Close stops the drain goroutine after the queue empties. It does not
// close the inner sink, which callers may still share elsewhere.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.wg.Wait()
		close(s.queue)
	})
}

var _ sink.Sink = (*Sink)(nil)
