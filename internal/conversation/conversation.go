// Package conversation holds the in-memory ordered message list for the
// active thread. All mutation goes through the event reconciler; the
// viewer only takes snapshots.
package conversation

import (
	"sync"
	"time"

	"chatpanel/internal/models"
)

// BlobReleaser releases a locally stored attachment payload.
type BlobReleaser interface {
	Remove(id string) error
}

type Store struct {
	messages []*models.Message
	threadID string
	blobs    BlobReleaser

	// ChangeCallback fires after every mutation (append, reaction change,
	// reset) and is used to push updates to connected viewers.
	ChangeCallback func()

	mux sync.RWMutex
}

type Config struct {
	Blobs          BlobReleaser
	ChangeCallback func()
}

func New(config Config) *Store {
	return &Store{
		threadID:       models.Stamp(time.Now()),
		blobs:          config.Blobs,
		ChangeCallback: config.ChangeCallback,
	}
}

func (s *Store) ThreadID() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.threadID
}

// Append adds a message at the end. Insertion order is display order;
// messages are never reordered.
func (s *Store) Append(msg *models.Message) {
	s.mux.Lock()
	s.messages = append(s.messages, msg)
	s.mux.Unlock()
	s.notify()
}

// Find returns a copy of the first message satisfying the predicate, in
// insertion order.
func (s *Store) Find(pred func(*models.Message) bool) (models.Message, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for _, m := range s.messages {
		if pred(m) {
			return m.Clone(), true
		}
	}
	return models.Message{}, false
}

// UpdateMatching applies fn to the first message with the given identity
// while holding the store lock. It reports whether a target was found.
func (s *Store) UpdateMatching(timestamp, threadID string, fn func(*models.Message)) bool {
	s.mux.Lock()
	for _, m := range s.messages {
		if m.Matches(timestamp, threadID) {
			fn(m)
			s.mux.Unlock()
			s.notify()
			return true
		}
	}
	s.mux.Unlock()
	return false
}

// Messages returns a deep-copied snapshot of the message list, safe to
// read while the reconciler keeps mutating the live messages.
func (s *Store) Messages() []models.Message {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.messages)
}

// Reset clears all messages, releases every attachment blob exactly once
// and regenerates the thread identifier.
func (s *Store) Reset() {
	s.mux.Lock()
	for _, m := range s.messages {
		if m.File != nil && m.File.BlobID != "" && s.blobs != nil {
			_ = s.blobs.Remove(m.File.BlobID)
			m.File.BlobID = ""
		}
	}
	s.messages = nil
	s.threadID = models.Stamp(time.Now())
	s.mux.Unlock()
	s.notify()
}

// Changed triggers the change callback without mutating the list. The
// reconciler calls it after mutating a message in place (reaction or
// file attachment updates).
func (s *Store) Changed() {
	s.notify()
}

func (s *Store) notify() {
	if s.ChangeCallback != nil {
		s.ChangeCallback()
	}
}
