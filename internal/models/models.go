package models

import (
	"fmt"
	"strings"
	"time"
)

// Stamp encodes a time as decimal seconds with 4 fractional digits, the
// identifier format used for message timestamps and thread ids.
func Stamp(t time.Time) string {
	return fmt.Sprintf("%.4f", float64(t.UnixNano())/1e9)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeFile    MessageType = "file"
	MessageTypeComment MessageType = "comment"
)

// Message represents one conversational turn in the active thread.
// The (Timestamp, ThreadID) pair doubles as the message identity used to
// match asynchronous reaction and update events against prior messages.
type Message struct {
	Timestamp   string          `json:"timestamp"` // decimal seconds with sub-second precision
	ThreadID    string          `json:"threadId"`
	Role        Role            `json:"role"`
	Content     string          `json:"content"` // rendered display markup
	IsInternal  bool            `json:"isInternal"`
	Reactions   []string        `json:"reactions"`
	Username    string          `json:"username"`
	MessageType MessageType     `json:"messageType"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Title       string          `json:"title,omitempty"`
	File        *FileAttachment `json:"file,omitempty"`
}

// Matches reports whether the message identity equals the given
// (timestamp, threadID) pair. Comparison is done on trimmed string form
// to tolerate whitespace differences introduced by the transport.
func (m *Message) Matches(timestamp, threadID string) bool {
	return strings.TrimSpace(m.Timestamp) == strings.TrimSpace(timestamp) &&
		strings.TrimSpace(m.ThreadID) == strings.TrimSpace(threadID)
}

// AddReaction appends a reaction glyph if it is not already present.
func (m *Message) AddReaction(glyph string) {
	for _, r := range m.Reactions {
		if r == glyph {
			return
		}
	}
	m.Reactions = append(m.Reactions, glyph)
}

// RemoveReaction deletes a reaction glyph. Removing an absent glyph is a no-op.
func (m *Message) RemoveReaction(glyph string) {
	for i, r := range m.Reactions {
		if r == glyph {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the message, detached from the live
// conversation so it can be read or serialized concurrently.
func (m *Message) Clone() Message {
	c := *m
	if m.Reactions != nil {
		c.Reactions = append([]string(nil), m.Reactions...)
	}
	if m.File != nil {
		f := *m.File
		c.File = &f
	}
	return c
}

// FileAttachment is a binary or text payload shown inline with a message.
type FileAttachment struct {
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	Content    string `json:"content"` // raw text or base64
	MimeType   string `json:"mimeType"`
	IsExpanded bool   `json:"isExpanded"`

	// BlobID references the locally stored payload. It is created lazily,
	// at most once per attachment, and released on conversation reset.
	BlobID string `json:"blobId,omitempty"`
}

type EventType string

const (
	EventTypeMessage        EventType = "MESSAGE"
	EventTypeMessageUpdate  EventType = "MESSAGE_UPDATE"
	EventTypeReactionUpdate EventType = "REACTION_UPDATE"
	EventTypeFileUpload     EventType = "FILE_UPLOAD"
	EventTypeError          EventType = "ERROR"
)

const (
	ReactionAdd    = "reaction_add"
	ReactionRemove = "reaction_remove"
)

// FilePayload is one entry of a FILE_UPLOAD event.
type FilePayload struct {
	FileContent string `json:"file_content"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
}

// Event is the wire-level union received over the backend socket,
// tagged by EventType.
type Event struct {
	EventType    EventType     `json:"event_type"`
	Role         Role          `json:"role,omitempty"`
	Content      string        `json:"content,omitempty"`
	Text         string        `json:"text,omitempty"`
	IsInternal   bool          `json:"is_internal,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
	ThreadID     string        `json:"thread_id,omitempty"`
	Update       string        `json:"update,omitempty"` // reaction_add | reaction_remove
	ReactionName string        `json:"reaction_name,omitempty"`
	Username     string        `json:"user_name,omitempty"`
	Files        []FilePayload `json:"files_content,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Body returns the display text of a message event. The backend populates
// either content or text depending on the event revision.
func (e *Event) Body() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Text
}

// OutboundMessage is the HTTP POST body for a user-sent message.
// The bookkeeping fields (IsMention, MessageType, IsInternal) are part of
// the backend contract but carry fixed values for user sends.
type OutboundMessage struct {
	ChannelID   string `json:"channel_id"`
	EventType   string `json:"event_type"`
	Text        string `json:"text"`
	ThreadID    string `json:"thread_id"`
	Timestamp   string `json:"timestamp"`
	Username    string `json:"user_name"`
	Role        string `json:"role"`
	IsMention   bool   `json:"is_mention"`
	MessageType string `json:"message_type"`
	IsInternal  bool   `json:"is_internal"`
}
