package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []Event
	failures int
	calls    int
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) snapshot() ([]Event, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...), s.calls
}

func newTestDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	return NewDispatcher(opts, zerolog.Nop(), sinks...)
}

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	d := newTestDispatcher(Options{QueueSize: 8, Workers: 2}, a, b)
	d.Start()

	biz := uuid.New()
	d.Publish(
		NewEvent(EventSaleCompleted, biz, SaleCompleted{Reference: "TXN-1"}),
		NewEvent(EventLowStock, biz, LowStock{Name: "Widget"}),
	)
	require.NoError(t, d.Close(context.Background()))

	for _, s := range []*recordingSink{a, b} {
		events, _ := s.snapshot()
		assert.Len(t, events, 2)
	}
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	s := &recordingSink{failures: 2}
	d := newTestDispatcher(Options{QueueSize: 1, Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond}, s)
	d.Start()

	d.Publish(NewEvent(EventRefundProcessed, uuid.New(), RefundProcessed{}))
	require.NoError(t, d.Close(context.Background()))

	events, calls := s.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, 3, calls)
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	s := &recordingSink{failures: 10}
	d := newTestDispatcher(Options{QueueSize: 1, Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond}, s)
	d.Start()

	d.Publish(NewEvent(EventLowStock, uuid.New(), LowStock{}))
	require.NoError(t, d.Close(context.Background()))

	events, calls := s.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 3, calls)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	s := &recordingSink{}
	d := newTestDispatcher(Options{QueueSize: 1, Workers: 1}, s)

	// workers not started yet, so only one event fits
	biz := uuid.New()
	d.Publish(
		NewEvent(EventLowStock, biz, LowStock{}),
		NewEvent(EventLowStock, biz, LowStock{}),
		NewEvent(EventLowStock, biz, LowStock{}),
	)
	assert.Equal(t, uint64(2), d.Dropped())

	d.Start()
	require.NoError(t, d.Close(context.Background()))
	events, _ := s.snapshot()
	assert.Len(t, events, 1)
}

func TestDispatcher_PublishAfterCloseIsNoop(t *testing.T) {
	s := &recordingSink{}
	d := newTestDispatcher(Options{QueueSize: 4, Workers: 1}, s)
	d.Start()
	require.NoError(t, d.Close(context.Background()))
	assert.ErrorIs(t, d.Close(context.Background()), ErrDispatcherClosed)

	assert.NotPanics(t, func() {
		d.Publish(NewEvent(EventSaleCompleted, uuid.New(), SaleCompleted{}))
	})
	events, _ := s.snapshot()
	assert.Empty(t, events)
}

func TestLogSink_Deliver(t *testing.T) {
	s := NewLogSink(zerolog.Nop())
	assert.Equal(t, "log", s.Name())
	assert.NoError(t, s.Deliver(context.Background(), NewEvent(EventProductCreated, uuid.New(), ProductCreated{})))
}
