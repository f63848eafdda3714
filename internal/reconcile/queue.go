package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"chatpanel/internal/models"
)

// Queue serializes event application: events are drained strictly FIFO by
// a single consumer, so at most one event mutates the conversation at any
// instant and reaction matching always observes fully-applied state.
type Queue struct {
	events chan models.Event
	apply  func(models.Event)
	drop   func() bool
	log    zerolog.Logger
}

// NewQueue creates a queue feeding apply. drop is consulted at the drain
// boundary; while it returns true, dequeued events are discarded instead
// of applied (cooperative cancellation after a stop).
func NewQueue(size int, apply func(models.Event), drop func() bool, log zerolog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		events: make(chan models.Event, size),
		apply:  apply,
		drop:   drop,
		log:    log,
	}
}

// Enqueue appends an event in arrival order. It blocks when the buffer is
// full, applying backpressure to the transport pump.
func (q *Queue) Enqueue(ctx context.Context, ev models.Event) error {
	select {
	case q.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue one event at a time until the context is
// cancelled. Events are never reordered or applied concurrently.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-q.events:
			if q.drop != nil && q.drop() {
				q.log.Debug().Str("eventType", string(ev.EventType)).Msg("discarding event for stopped request")
				continue
			}
			q.apply(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Discard drops all currently queued, not-yet-applied events. Events
// already applied are not rolled back.
func (q *Queue) Discard() {
	for {
		select {
		case ev := <-q.events:
			q.log.Debug().Str("eventType", string(ev.EventType)).Msg("discarding queued event")
		default:
			return
		}
	}
}

// Len reports the number of queued, not-yet-applied events.
func (q *Queue) Len() int {
	return len(q.events)
}
