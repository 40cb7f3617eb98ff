package tui

import "testing"

func TestWrapText(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits on one line", "control the center", 20, "control the center"},
		{"wraps at spaces", "control the center early", 12, "control the\ncenter early"},
		{"long word kept whole", "a verylongunbreakableword b", 10, "a\nverylongunbreakableword\nb"},
		{"zero width passthrough", "a b c", 0, "a b c"},
		{"collapses runs of spaces", "a   b", 10, "a b"},
	}
	for _, tc := range cases {
		if got := wrapText(tc.text, tc.width); got != tc.want {
			t.Errorf("%s: wrapText(%q, %d) = %q, want %q", tc.name, tc.text, tc.width, got, tc.want)
		}
	}
}
