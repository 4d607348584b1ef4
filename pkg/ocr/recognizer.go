package ocr

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Recognizer turns image buffers into structured text by driving an Engine.
//
// From the caller's perspective Recognize is a pure function over its input:
// no state visible to the caller changes between calls, although the engine
// may keep a loaded model in memory. Calls for different images are
// independent and may run concurrently; no ordering between them is
// guaranteed.
type Recognizer struct {
	engine Engine
}

// NewRecognizer wraps engine. Engines are usually obtained through
// provisioning (internal/provision) rather than constructed directly.
func NewRecognizer(engine Engine) *Recognizer {
	return &Recognizer{engine: engine}
}

// EngineName reports the name of the underlying engine.
func (r *Recognizer) EngineName() string {
	if r == nil || r.engine == nil {
		return ""
	}
	return r.engine.Name()
}

// Recognize runs text recognition over img.
//
// A nil or empty buffer fails fast with a *RecognitionError so upstream
// decode failures are never masked by a silently empty result. An image that
// genuinely contains no text yields an empty RecognizedText and no error.
// When ctx is cancelled mid-call the error wraps ctx.Err() and no partial
// result is returned.
func (r *Recognizer) Recognize(ctx context.Context, img *ImageBuffer) (*RecognizedText, error) {
	if r == nil || r.engine == nil {
		return nil, &RecognitionError{Reason: "no engine configured"}
	}
	if img == nil || len(img.data) == 0 {
		return nil, &RecognitionError{Reason: "nil or empty image buffer"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &RecognitionError{Reason: "aborted", Err: err}
	}
	res, err := r.engine.Recognize(ctx, img.data)
	if err != nil {
		return nil, &RecognitionError{Reason: "engine " + r.engine.Name() + " failed", Err: err}
	}
	return assemble(res), nil
}

// assemble groups word observations into lines in the order the engine
// emitted them. Nothing is re-sorted geometrically: the engine's reading
// order stands.
func assemble(res EngineResult) *RecognizedText {
	if len(res.Words) == 0 {
		return linesFromText(res.Text)
	}
	var lines []Line
	var curKey [3]int
	for _, wb := range res.Words {
		key := [3]int{wb.Block, wb.Par, wb.Line}
		if len(lines) == 0 || key != curKey {
			lines = append(lines, Line{})
			curKey = key
		}
		li := len(lines) - 1
		lines[li].Words = append(lines[li].Words, Word{
			Text:       norm.NFC.String(wb.Text),
			Bounds:     QuadFromRect(float64(wb.Left), float64(wb.Top), float64(wb.Width), float64(wb.Height)),
			Confidence: clampConfidence(wb.Conf / 100),
		})
	}
	for i := range lines {
		texts := make([]string, len(lines[i].Words))
		for j, w := range lines[i].Words {
			texts[j] = w.Text
		}
		lines[i].Text = strings.Join(texts, " ")
	}
	return &RecognizedText{Lines: lines}
}

// linesFromText builds a result without word geometry for text-only
// backends. Interior blank lines are preserved so that line numbering still
// matches the engine output; trailing blank lines are dropped.
func linesFromText(text string) *RecognizedText {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return &RecognizedText{}
	}
	parts := strings.Split(text, "\n")
	lines := make([]Line, len(parts))
	for i, p := range parts {
		lines[i].Text = norm.NFC.String(p)
	}
	return &RecognizedText{Lines: lines}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
