package render

import (
	"strings"
	"time"
)

// isoLayouts covers the ISO-8601 forms submitters send: extended or basic
// date, T or space separator, time down to the hour and an optional offset
// in ±HH:MM, ±HHMM or ±HH form.
var isoLayouts = func() []string {
	dates := []string{"2006-01-02", "20060102"}
	times := []string{"15:04:05.999999999", "15:04", "150405.999999999", "1504", "15"}
	offsets := []string{"-07:00", "-0700", "-07", ""}

	var out []string
	for _, d := range dates {
		for _, sep := range []string{"T", " "} {
			for _, tm := range times {
				for _, off := range offsets {
					out = append(out, d+sep+tm+off)
				}
			}
		}
		out = append(out, d)
	}
	return out
}()

// parseSubmittedAt accepts the ISO-8601 forms in isoLayouts. A Z designator
// is read as +00:00.
func parseSubmittedAt(raw string) (time.Time, bool) {
	s := strings.ReplaceAll(raw, "Z", "+00:00")
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatSubmittedAt renders raw as DD.MM.YYYY HH:MM in the timestamp's own
// offset. Unparseable input is cut to its first 16 characters.
func FormatSubmittedAt(raw string) string {
	if t, ok := parseSubmittedAt(raw); ok {
		return t.Format("02.01.2006 15:04")
	}
	r := []rune(raw)
	if len(r) > 16 {
		r = r[:16]
	}
	return string(r)
}
