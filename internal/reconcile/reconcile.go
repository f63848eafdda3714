// Package reconcile folds the inbound backend event stream into the
// conversation model. Apply is called by a single consumer at a time
// (see Queue); it never lets a malformed event raise past its boundary.
package reconcile

import (
	"strings"

	"github.com/rs/zerolog"

	"chatpanel/internal/blobstore"
	"chatpanel/internal/content"
	"chatpanel/internal/conversation"
	"chatpanel/internal/emoji"
	"chatpanel/internal/models"
	"chatpanel/internal/session"
)

// Notifier surfaces backend errors to the user as a transient notice.
type Notifier interface {
	Notify(text string)
}

type Reconciler struct {
	store    *conversation.Store
	pending  *conversation.PendingReactions
	session  *session.Session
	renderer *content.Renderer
	blobs    *blobstore.Store
	notifier Notifier
	log      zerolog.Logger
}

type Config struct {
	Store    *conversation.Store
	Pending  *conversation.PendingReactions
	Session  *session.Session
	Renderer *content.Renderer
	Blobs    *blobstore.Store
	Notifier Notifier
	Log      zerolog.Logger
}

func New(config Config) *Reconciler {
	return &Reconciler{
		store:    config.Store,
		pending:  config.Pending,
		session:  config.Session,
		renderer: config.Renderer,
		blobs:    config.Blobs,
		notifier: config.Notifier,
		log:      config.Log,
	}
}

// Apply classifies one inbound event and applies it to the conversation.
func (r *Reconciler) Apply(ev models.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("eventType", string(ev.EventType)).
				Msg("event application panicked")
		}
	}()

	switch ev.EventType {
	case models.EventTypeError:
		r.applyError(ev)
	case models.EventTypeReactionUpdate:
		r.applyReaction(ev)
	case models.EventTypeFileUpload:
		r.applyFiles(ev)
	case models.EventTypeMessage, models.EventTypeMessageUpdate:
		r.applyMessage(ev)
	default:
		// Unknown server event types are ignored for forward compatibility.
		r.log.Debug().Str("eventType", string(ev.EventType)).Msg("ignoring unknown event type")
	}
}

func (r *Reconciler) applyError(ev models.Event) {
	r.log.Warn().Str("error", ev.Error).Msg("backend reported an error")
	if r.notifier != nil {
		r.notifier.Notify(ev.Error)
	}
	r.session.Errored()
}

func (r *Reconciler) applyReaction(ev models.Event) {
	glyph, known := emoji.Resolve(ev.ReactionName)
	if !known {
		glyph = ev.ReactionName
	}

	found := r.store.UpdateMatching(ev.Timestamp, ev.ThreadID, func(m *models.Message) {
		switch ev.Update {
		case models.ReactionAdd:
			m.AddReaction(glyph)
		case models.ReactionRemove:
			m.RemoveReaction(glyph)
		default:
			r.log.Debug().Str("update", ev.Update).Msg("ignoring unknown reaction op")
		}
	})

	// The "done" reaction signals completion of the outstanding request,
	// whether or not its target message has arrived yet.
	if ev.Update == models.ReactionAdd &&
		strings.EqualFold(strings.TrimSpace(ev.ReactionName), emoji.DoneReaction) {
		r.session.Completed()
	}

	if !found {
		// Never dropped silently: buffered for replay once the target
		// message shows up.
		r.pending.Push(ev)
		r.log.Debug().Str("timestamp", ev.Timestamp).Str("reaction", ev.ReactionName).
			Msg("buffered reaction for missing target")
	}
}

func (r *Reconciler) applyFiles(ev models.Event) {
	for _, f := range ev.Files {
		data := blobstore.Decode(f.FileContent)

		blobID := ""
		if r.blobs != nil {
			id, err := r.blobs.Save(data)
			if err != nil {
				r.log.Error().Err(err).Str("filename", f.Filename).Msg("failed to store attachment payload")
			} else {
				blobID = id
			}
		}

		r.store.Append(&models.Message{
			Timestamp:   strings.TrimSpace(ev.Timestamp),
			ThreadID:    strings.TrimSpace(ev.ThreadID),
			Role:        roleOrAssistant(ev.Role),
			Content:     "",
			IsInternal:  ev.IsInternal,
			Username:    ev.Username,
			MessageType: models.MessageTypeFile,
			Title:       f.Title,
			File: &models.FileAttachment{
				Filename: f.Filename,
				Title:    f.Title,
				Content:  f.FileContent,
				MimeType: blobstore.MimeFor(f.Filename, data),
				BlobID:   blobID,
			},
		})
	}
}

func (r *Reconciler) applyMessage(ev models.Event) {
	if r.session.StopProcessing() {
		// Response to a superseded request.
		r.log.Debug().Str("timestamp", ev.Timestamp).Msg("dropping message for stopped request")
		return
	}

	text, imageURL := content.Extract(ev.Body())

	msg := &models.Message{
		Timestamp:   strings.TrimSpace(ev.Timestamp),
		ThreadID:    strings.TrimSpace(ev.ThreadID),
		Role:        roleOrAssistant(ev.Role),
		Content:     r.renderer.Render(text),
		IsInternal:  ev.IsInternal,
		Username:    ev.Username,
		MessageType: models.MessageTypeText,
		ImageURL:    imageURL,
	}
	r.store.Append(msg)

	if msg.Role == models.RoleUser && !msg.IsInternal {
		r.session.RecordUserMessage(msg.Timestamp)
		// Reactions that raced ahead of this message attach to it now.
		r.store.UpdateMatching(msg.Timestamp, msg.ThreadID, func(m *models.Message) {
			r.pending.DrainInto(m, emoji.Resolve)
		})
	}
}

func roleOrAssistant(role models.Role) models.Role {
	if role == "" {
		return models.RoleAssistant
	}
	return role
}
