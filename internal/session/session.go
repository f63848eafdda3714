// Package session tracks the one outstanding user request and gates
// whether new messages may be sent or inbound events applied.
package session

import (
	"errors"
	"sync"
	"time"

	"chatpanel/internal/conversation"
	"chatpanel/internal/models"
)

var ErrBusy = errors.New("a request is already outstanding")

type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
	StateWaiting State = "waiting"
)

// Discarder drops queued, not-yet-applied inbound events. Events already
// applied are never rolled back.
type Discarder interface {
	Discard()
}

type Session struct {
	store   *conversation.Store
	pending *conversation.PendingReactions
	queue   Discarder

	channelID string
	username  string

	mux                 sync.Mutex
	state               State
	latestUserTimestamp string
	lastUserMessage     string
	userStopped         bool
	stopProcessing      bool
}

type Config struct {
	Store     *conversation.Store
	Pending   *conversation.PendingReactions
	ChannelID string
	Username  string
}

func New(config Config) *Session {
	return &Session{
		store:     config.Store,
		pending:   config.Pending,
		channelID: config.ChannelID,
		username:  config.Username,
		state:     StateIdle,
	}
}

// SetQueue wires the inbound queue for Stop to discard. Set once during
// startup, before any events flow.
func (s *Session) SetQueue(q Discarder) {
	s.queue = q
}

// StartSend stamps a fresh timestamp identifier, clears the
// stop-processing flag and builds the outbound payload. It fails with
// ErrBusy while a previous request is still outstanding.
func (s *Session) StartSend(text string) (models.OutboundMessage, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.state != StateIdle {
		return models.OutboundMessage{}, ErrBusy
	}

	ts := models.Stamp(time.Now())
	s.state = StateSending
	s.latestUserTimestamp = ts
	s.userStopped = false
	s.stopProcessing = false

	return models.OutboundMessage{
		ChannelID:   s.channelID,
		EventType:   string(models.EventTypeMessage),
		Text:        text,
		ThreadID:    s.store.ThreadID(),
		Timestamp:   ts,
		Username:    s.username,
		Role:        string(models.RoleUser),
		IsMention:   false,
		MessageType: "TEXT",
		IsInternal:  false,
	}, nil
}

// ConfirmSend transitions to Waiting once the transport accepted the
// request.
func (s *Session) ConfirmSend() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.state == StateSending {
		s.state = StateWaiting
	}
}

// FailSend returns to Idle after a transport failure.
func (s *Session) FailSend() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.state = StateIdle
}

// Stop is the cooperative cancellation primitive: it flips the flags and
// clears the not-yet-applied portion of the queue.
func (s *Session) Stop() {
	s.mux.Lock()
	s.state = StateIdle
	s.userStopped = true
	s.stopProcessing = true
	s.mux.Unlock()

	if s.queue != nil {
		s.queue.Discard()
	}
}

// Reset clears the conversation (releasing attachment blobs), drops any
// buffered reactions, re-enters Idle and appends a synthetic system
// message announcing the reset.
func (s *Session) Reset() {
	s.mux.Lock()
	s.state = StateIdle
	s.userStopped = false
	s.stopProcessing = false
	s.latestUserTimestamp = ""
	s.lastUserMessage = ""
	s.mux.Unlock()

	if s.pending != nil {
		s.pending.Clear()
	}
	s.store.Reset()

	s.store.Append(&models.Message{
		Timestamp:   models.Stamp(time.Now()),
		ThreadID:    s.store.ThreadID(),
		Role:        models.RoleSystem,
		Content:     "Conversation has been reset.",
		Username:    "system",
		MessageType: models.MessageTypeComment,
	})
}

// Completed handles the "done" reaction: the outstanding request is
// finished and the user may send again.
func (s *Session) Completed() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.state = StateIdle
	s.userStopped = false
}

// Errored handles a backend-reported ERROR event: the request is
// terminal and further events for it are dropped.
func (s *Session) Errored() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.state = StateIdle
	s.userStopped = false
	s.stopProcessing = true
}

// RecordUserMessage remembers the identity of the latest user-authored,
// non-internal message folded into the conversation.
func (s *Session) RecordUserMessage(timestamp string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.lastUserMessage = timestamp
}

func (s *Session) State() State {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

// IsWaiting reports whether a request is outstanding; it gates sending.
func (s *Session) IsWaiting() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state != StateIdle
}

func (s *Session) UserStopped() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.userStopped
}

// StopProcessing reports whether inbound events belong to a superseded
// request and must be dropped at the queue boundary.
func (s *Session) StopProcessing() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.stopProcessing
}

func (s *Session) LatestUserTimestamp() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.latestUserTimestamp
}

// LastUserMessage returns the identity recorded by RecordUserMessage,
// the timestamp of the latest user message confirmed by the backend.
// Empty until the echo of the first send arrives, and after a reset.
func (s *Session) LastUserMessage() string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.lastUserMessage
}
