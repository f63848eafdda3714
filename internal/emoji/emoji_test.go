package emoji

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		glyph string
		ok    bool
	}{
		{"done", "✅", true},
		{"DONE", "✅", true},
		{" wait ", "⏳", true},
		{"error", "❌", true},
		{"shrug", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		g, ok := Resolve(tt.name)
		if ok != tt.ok {
			t.Errorf("Resolve(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
		if g != tt.glyph {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, g, tt.glyph)
		}
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"all :done:", "all ✅"},
		{":wait: a moment", "⏳ a moment"},
		{"ratio 1:2 stays", "ratio 1:2 stays"},
		{"1:2 then :done:", "1:2 then ✅"},
		{"no shortcodes", "no shortcodes"},
		{"unterminated :done", "unterminated :done"},
	}

	for _, tt := range tests {
		if got := Replace(tt.in); got != tt.want {
			t.Errorf("Replace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
