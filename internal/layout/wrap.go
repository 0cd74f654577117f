// Package layout breaks paragraphs into lines that fit a given width.
package layout

import "strings"

// Measurer reports the rendered width of a string at the active font and size.
type Measurer interface {
	StringWidth(s string) float64
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(s string) float64

func (f MeasureFunc) StringWidth(s string) float64 { return f(s) }

// Wrap splits text on whitespace and greedily packs words into lines no wider
// than maxWidth. Words are never broken; a word wider than maxWidth gets a
// line of its own.
func Wrap(text string, maxWidth float64, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if m.StringWidth(candidate) <= maxWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}
