package emoji

import "strings"

// DoneReaction is the sentinel reaction name the backend attaches to the
// user message once the outstanding request has completed.
const DoneReaction = "done"

var glyphs = map[string]string{
	"processing":  "⚙️",
	"done":        "✅",
	"acknowledge": "👀",
	"generating":  "💭",
	"writing":     "✍️",
	"error":       "❌",
	"wait":        "⏳",
}

// Resolve maps a short reaction name to its display glyph.
// The lookup is case-insensitive. Unknown names return ("", false);
// callers fall back to the raw name as display text.
func Resolve(name string) (string, bool) {
	g, ok := glyphs[strings.ToLower(strings.TrimSpace(name))]
	return g, ok
}

// Replace substitutes :name: shortcodes in text with their glyphs.
// Unknown shortcodes are left untouched.
func Replace(text string) string {
	if !strings.Contains(text, ":") {
		return text
	}
	var b strings.Builder
	for {
		start := strings.IndexByte(text, ':')
		if start < 0 {
			b.WriteString(text)
			break
		}
		end := strings.IndexByte(text[start+1:], ':')
		if end < 0 {
			b.WriteString(text)
			break
		}
		end += start + 1
		name := text[start+1 : end]
		if g, ok := Resolve(name); ok {
			b.WriteString(text[:start])
			b.WriteString(g)
			text = text[end+1:]
			continue
		}
		// Not a known shortcode. Keep the first colon literal and rescan
		// from the second one, which may open a valid shortcode.
		b.WriteString(text[:end])
		text = text[end:]
	}
	return b.String()
}
