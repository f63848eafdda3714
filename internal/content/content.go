// Package content turns raw message text from the backend into safe
// display markup.
package content

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/c-pro/geche"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"chatpanel/internal/emoji"
)

var (
	urlRegex     = regexp.MustCompile(`https?://[^\s<>"')]+`)
	mentionRegex = regexp.MustCompile(`(^|\s)(@[a-zA-Z0-9._-]+)`)
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// Renderer converts markdown message text to sanitized HTML. Rendered
// output is cached because MESSAGE_UPDATE events re-render revisions of
// the same content.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  geche.Geche[string, string]
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
		cache:  geche.NewMapCache[string, string](),
	}
}

// Render runs the full display pipeline: mention highlighting, emoji
// shortcode substitution, markdown rendering and sanitization.
// It never fails; on a markdown rendering error the escaped source text
// is used as display markup.
func (r *Renderer) Render(text string) string {
	if cached, err := r.cache.Get(text); err == nil {
		return cached
	}

	prepared := emoji.Replace(highlightMentions(text))

	var buf bytes.Buffer
	var rendered string
	if err := r.md.Convert([]byte(prepared), &buf); err != nil {
		rendered = r.policy.Sanitize(prepared)
	} else {
		rendered = r.policy.Sanitize(buf.String())
	}

	r.cache.Set(text, rendered)
	return rendered
}

// highlightMentions wraps @name tokens in strong emphasis so they stand
// out after markdown rendering.
func highlightMentions(text string) string {
	return mentionRegex.ReplaceAllString(text, "$1**$2**")
}

// Extract pulls the display text and an optional image URL out of raw
// message content. Content that parses as a JSON action shape yields the
// observation or thought string; otherwise the raw text is scanned for
// its first URL, classified as image or link by extension.
func Extract(raw string) (text, imageURL string) {
	if t, img, ok := extractAction(raw); ok {
		return t, img
	}

	url := urlRegex.FindString(raw)
	if url != "" && isImageURL(url) {
		return raw, url
	}
	return raw, ""
}

// actionShape is the agent-style JSON structure some backends emit
// instead of plain text.
type actionShape struct {
	Thought     string          `json:"thought"`
	Observation string          `json:"observation"`
	Action      json.RawMessage `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

func extractAction(raw string) (text, imageURL string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return "", "", false
	}

	var shape actionShape
	if err := json.Unmarshal([]byte(trimmed), &shape); err != nil {
		return "", "", false
	}
	if shape.Thought == "" && shape.Observation == "" && shape.Action == nil {
		// Valid JSON but not the action shape: treat as plain text.
		return "", "", false
	}

	switch {
	case shape.Observation != "":
		text = shape.Observation
	case shape.Thought != "":
		text = shape.Thought
	default:
		text = trimmed
	}

	// An image URL may hide in the observation text or the action input.
	for _, candidate := range []string{shape.Observation, string(shape.ActionInput), string(shape.Action)} {
		if url := urlRegex.FindString(candidate); url != "" && isImageURL(url) {
			imageURL = url
			break
		}
	}

	return text, imageURL, true
}

func isImageURL(url string) bool {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
