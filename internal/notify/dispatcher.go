package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives events after the ledger has committed.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Publisher is what the ledger depends on. Publish must never block the
// caller or report failure back into the write path.
type Publisher interface {
	Publish(events ...Event)
}

var ErrDispatcherClosed = errors.New("dispatcher is closed")

type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Dispatcher fans events out to sinks from a bounded in-memory queue.
type Dispatcher struct {
	sinks     []Sink
	opts      Options
	log       zerolog.Logger
	queue     chan Event
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	dropped   atomic.Uint64
}

func NewDispatcher(opts Options, log zerolog.Logger, sinks ...Sink) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Dispatcher{
		sinks:     sinks,
		opts:      opts,
		log:       log.With().Str("component", "notify").Logger(),
		queue:     make(chan Event, opts.QueueSize),
		closeChan: make(chan struct{}),
	}
}

// Start launches the workers. Call once.
func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Publish enqueues events without blocking. Events that do not fit are
// dropped and logged.
func (d *Dispatcher) Publish(events ...Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range events {
		if d.closed {
			d.log.Warn().Str("event", string(e.Type)).Msg("dispatcher closed, event dropped")
			continue
		}
		select {
		case d.queue <- e:
		default:
			d.dropped.Add(1)
			d.log.Warn().Str("event", string(e.Type)).Msg("notify queue full, event dropped")
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire. A second call returns ErrDispatcherClosed.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.closeChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.queue:
			d.dispatch(e)
		case <-d.closeChan:
			// drain what is already queued
			for {
				select {
				case e := <-d.queue:
					d.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) dispatch(e Event) {
	for _, s := range d.sinks {
		d.deliver(s, e)
	}
}

func (d *Dispatcher) deliver(s Sink, e Event) {
	var err error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * d.opts.RetryBackoff)
		}
		if err = s.Deliver(context.Background(), e); err == nil {
			return
		}
		d.log.Debug().Err(err).
			Str("sink", s.Name()).
			Str("event", string(e.Type)).
			Int("attempt", attempt+1).
			Msg("delivery failed")
	}
	d.log.Error().Err(err).
		Str("sink", s.Name()).
		Str("event", string(e.Type)).
		Str("business_id", e.BusinessID.String()).
		Msg("event delivery gave up")
}

var _ Publisher = (*Dispatcher)(nil)
