package ocr

import (
	"testing"
)

func TestQuadFromRect(t *testing.T) {
	b := QuadFromRect(10, 20, 100, 50)
	if b.TopLeft() != (Point{X: 10, Y: 20}) {
		t.Errorf("top-left = %v", b.TopLeft())
	}
	if b.TopRight() != (Point{X: 110, Y: 20}) {
		t.Errorf("top-right = %v", b.TopRight())
	}
	if b.BottomRight() != (Point{X: 110, Y: 70}) {
		t.Errorf("bottom-right = %v", b.BottomRight())
	}
	if b.BottomLeft() != (Point{X: 10, Y: 70}) {
		t.Errorf("bottom-left = %v", b.BottomLeft())
	}
}

func TestFlatText(t *testing.T) {
	rt := &RecognizedText{Lines: []Line{{Text: "first line"}, {Text: ""}, {Text: "third line"}}}
	want := "first line\n\nthird line"
	if got := rt.FlatText(); got != want {
		t.Errorf("FlatText() = %q, want %q", got, want)
	}
	var nothing *RecognizedText
	if nothing.FlatText() != "" {
		t.Error("expected empty string for nil result")
	}
}

func TestWordCount(t *testing.T) {
	rt := &RecognizedText{Lines: []Line{
		{Words: []Word{{Text: "a"}, {Text: "b"}}},
		{Words: []Word{{Text: "c"}}},
		{Text: "line without word geometry"},
	}}
	if got := rt.WordCount(); got != 3 {
		t.Errorf("WordCount() = %d, want 3", got)
	}
}
