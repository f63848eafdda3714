package conversation

import (
	"sync"

	"chatpanel/internal/models"
)

// PendingReactions buffers reaction events whose target message did not
// exist when they arrived. The buffer is drained every time a new
// user-authored, non-internal message is appended.
type PendingReactions struct {
	mux    sync.Mutex
	events []models.Event
}

func (p *PendingReactions) Push(ev models.Event) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.events = append(p.events, ev)
}

func (p *PendingReactions) Len() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return len(p.events)
}

// DrainInto replays every buffered event against the given message and
// clears the buffer unconditionally. resolve maps a reaction name to its
// display glyph; unresolved names are applied as-is. Buffered events are
// single-use: an entry whose identity still matches nothing is dropped
// with the rest of the buffer.
func (p *PendingReactions) DrainInto(msg *models.Message, resolve func(string) (string, bool)) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, ev := range p.events {
		if !msg.Matches(ev.Timestamp, ev.ThreadID) {
			continue
		}
		glyph, ok := resolve(ev.ReactionName)
		if !ok {
			glyph = ev.ReactionName
		}
		switch ev.Update {
		case models.ReactionAdd:
			msg.AddReaction(glyph)
		case models.ReactionRemove:
			msg.RemoveReaction(glyph)
		}
	}
	p.events = nil
}

// Clear drops all buffered events without replaying them.
func (p *PendingReactions) Clear() {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.events = nil
}
