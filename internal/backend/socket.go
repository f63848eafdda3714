package backend

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatpanel/internal/models"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// EventSink receives decoded inbound events in wire-arrival order.
type EventSink interface {
	Enqueue(ctx context.Context, ev models.Event) error
}

// Notifier surfaces transport problems to the user as a transient
// notice.
type Notifier interface {
	Notify(text string)
}

// Socket maintains the websocket connection to the backend event stream
// and pumps every received event into the sink. The sink serializes
// application; the socket never applies events itself.
type Socket struct {
	url      string
	sink     EventSink
	notifier Notifier
	dialer   *websocket.Dialer
	log      zerolog.Logger
}

func NewSocket(url string, sink EventSink, notifier Notifier, log zerolog.Logger) *Socket {
	return &Socket{
		url:      url,
		sink:     sink,
		notifier: notifier,
		dialer:   websocket.DefaultDialer,
		log:      log,
	}
}

// Run connects and pumps events until the context is cancelled,
// reconnecting with capped backoff after transport failures.
func (s *Socket) Run(ctx context.Context) error {
	backoff := initialBackoff
	notified := false

	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Dur("retryIn", backoff).Msg("socket dial failed")
			// One notice per outage, not one per retry.
			if !notified {
				s.notify("Connection to backend failed, retrying")
				notified = true
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		s.log.Info().Str("url", s.url).Msg("socket connected")
		backoff = initialBackoff
		notified = false

		err = s.pump(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("socket closed, reconnecting")
			s.notify("Connection to backend lost, reconnecting")
			notified = true
		}
	}
}

func (s *Socket) notify(text string) {
	if s.notifier != nil {
		s.notifier.Notify(text)
	}
}

func (s *Socket) pump(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if err := s.sink.Enqueue(ctx, ev); err != nil {
			return err
		}
	}
}
