/*
Package textnorm post-processes recognized text before indexing or plain-text
delivery.

Scanned pages break words at line ends with hyphens. This package joins such
words back together while preserving hyphens that belong to compounds
(detected by an uppercase rune next to the hyphen, which covers German
compounds and abbreviation joins like "US-Senat"). With FoldNewlines set the
output additionally collapses line breaks into spaces, which suits search
machine indexing.
*/
package textnorm

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode"
)

// FoldNewlines replaces line breaks in the output with single spaces.
var FoldNewlines bool = false

// Dehyphenate copies text from in to out line by line, removing hyphens at
// line ends when they look like soft breaks and keeping them when they look
// like part of a compound.
func Dehyphenate(in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()
	pendingHyphen := false
	s := bufio.NewScanner(in)
	for s.Scan() {
		line := strings.ReplaceAll(s.Text(), "￾", "")
		runes := []rune(strings.TrimSpace(line))
		if len(runes) == 0 || isHyphen(runes[0]) {
			// Skip empty and hyphen-only lines
			if !FoldNewlines {
				w.WriteRune('\n')
			}
			continue
		}
		if pendingHyphen && unicode.IsUpper(runes[0]) {
			// The previous line ended with a hyphen that we removed,
			// but this line starts uppercase. Put the hyphen back.
			w.WriteString("-")
		}
		pendingHyphen = false
		if !isHyphen(runes[len(runes)-1]) {
			if _, err := w.WriteString(string(runes)); err != nil {
				return err
			}
			if !FoldNewlines {
				w.WriteRune('\n')
			} else {
				w.WriteRune(' ')
			}
			continue
		}
		if len(runes) > 1 && unicode.IsUpper(runes[len(runes)-2]) {
			// Uppercase rune right before the hyphen, keep the line as is
			// and let the next line attach directly.
			if _, err := w.WriteString(string(runes)); err != nil {
				return err
			}
			continue
		}
		// Soft break candidate: drop the hyphen and remember it in case the
		// next line proves us wrong.
		pendingHyphen = true
		if _, err := w.WriteString(string(runes[:len(runes)-1])); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return w.Flush()
}

// DehyphenateString is Dehyphenate over strings.
func DehyphenateString(in string) (string, error) {
	var buf bytes.Buffer
	err := Dehyphenate(strings.NewReader(in), &buf)
	return buf.String(), err
}

func isHyphen(r rune) bool {
	return unicode.Is(unicode.Hyphen, r)
}
