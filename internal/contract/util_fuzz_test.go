package contract

import (
	"testing"
	"unicode/utf8"
)

// FuzzTruncateLabel fuzzes TruncateLabel with random labels and widths.
func FuzzTruncateLabel(f *testing.F) {
	seeds := []struct {
		label string
		width int
	}{
		{"SN2023abc", 5},
		{"ZTF21aaaaaaaaaaa", 10},
		{"", 0},
		{"αβγδεζηθ", 4},
		{"x", -1},
	}
	for _, seed := range seeds {
		f.Add(seed.label, seed.width)
	}

	f.Fuzz(func(t *testing.T, label string, width int) {
		if !utf8.ValidString(label) {
			t.Skip()
		}
		got := TruncateLabel(label, width)
		if width > 3 && utf8.RuneCountInString(got) > width {
			t.Fatalf("TruncateLabel(%q, %d) = %q exceeds width", label, width, got)
		}
	})
}
