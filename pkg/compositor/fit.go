package compositor

import "github.com/charmbracelet/x/ansi"

// width returns the visible width of s in terminal cells, ignoring ANSI
// escape sequences.
func width(s string) int {
	return ansi.StringWidth(s)
}

// fit truncates s to maxWidth cells, keeping escape sequences intact and
// appending tail when something was cut. maxWidth <= 0 means unlimited.
func fit(s string, maxWidth int, tail string) string {
	if maxWidth <= 0 || width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, tail)
}
