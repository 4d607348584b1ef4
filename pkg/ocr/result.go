package ocr

import "strings"

// Point is a pixel coordinate in the source image, origin in the upper-left
// corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is the four-cornered polygon locating a recognized word in the
// source image. The corners are stored in order top-left, top-right,
// bottom-right, bottom-left, so consecutive points trace the polygon
// boundary. The quad is not necessarily axis-aligned.
type BoundingBox [4]Point

// QuadFromRect builds an axis-aligned BoundingBox from a pixel rectangle.
func QuadFromRect(left, top, width, height float64) BoundingBox {
	return BoundingBox{
		{X: left, Y: top},
		{X: left + width, Y: top},
		{X: left + width, Y: top + height},
		{X: left, Y: top + height},
	}
}

func (b BoundingBox) TopLeft() Point     { return b[0] }
func (b BoundingBox) TopRight() Point    { return b[1] }
func (b BoundingBox) BottomRight() Point { return b[2] }
func (b BoundingBox) BottomLeft() Point  { return b[3] }

// Word is a single recognized token with its location and the model's
// certainty about it.
type Word struct {
	Text   string      `json:"text"`
	Bounds BoundingBox `json:"bounds"`
	// Confidence is the model-reported certainty in [0,1].
	Confidence float64 `json:"confidence"`
}

// Line is one line of recognized text: its words in left-to-right reading
// order as detected, plus the concatenated text.
type Line struct {
	Text  string `json:"text"`
	Words []Word `json:"words,omitempty"`
}

// RecognizedText is the structured result of one recognition call.
//
// Lines appear in reading order (top-to-bottom as detected). The ordering is
// a best-effort product of the recognition model, not a geometric sort:
// callers must not assume strictly increasing y coordinates across lines.
// The value is immutable once returned.
type RecognizedText struct {
	Lines []Line `json:"lines"`
}

// FlatText joins the text of all lines with a newline separator, preserving
// line order. Line n of the output corresponds to Lines[n].
func (rt *RecognizedText) FlatText() string {
	if rt == nil || len(rt.Lines) == 0 {
		return ""
	}
	texts := make([]string, len(rt.Lines))
	for i, l := range rt.Lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// WordCount returns the total number of words over all lines.
func (rt *RecognizedText) WordCount() int {
	if rt == nil {
		return 0
	}
	n := 0
	for _, l := range rt.Lines {
		n += len(l.Words)
	}
	return n
}
