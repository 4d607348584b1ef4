// Package pdfdate parses the date strings found in PDF document metadata,
// e.g. D:20240419110302+02'00'.
package pdfdate

import (
	"strings"
	"time"
)

// Layouts tried in order. PDF dates come with a quoted UTC offset, a plain
// offset, or no timezone at all.
var layouts = []string{"20060102150405Z07'00'", "20060102150405Z07", "20060102150405"}

// Parse converts a PDF metadata date to a time.Time.
func Parse(raw string) (time.Time, error) {
	raw, _ = strings.CutPrefix(raw, "D:")
	var t time.Time
	var err error
	for _, layout := range layouts {
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return t, err
}

// ParseOrZero is Parse for callers treating unparsable dates as absent.
func ParseOrZero(raw string) time.Time {
	t, err := Parse(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
