package ocr

import "context"

// WordBox is a single word observation as emitted by a recognition engine:
// its text, pixel geometry, a Tesseract-style confidence in 0..100 and the
// block/paragraph/line/word sequence numbers that encode reading order.
type WordBox struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
	// Conf is the engine-native confidence, 0..100.
	Conf  float64
	Block int
	Par   int
	Line  int
	Word  int
}

// EngineResult is the raw output of one engine invocation. Engines with
// layout support fill Words; text-only engines fill just Text, which is then
// split into lines without word geometry.
type EngineResult struct {
	Words []WordBox
	Text  string
}

// Engine is the opaque recognition capability behind a Recognizer. The
// engine's internals (network weights, acceleration, language models) are
// vendor-supplied and out of scope; this interface is the whole contract.
//
// Implementations must be safe for use from multiple goroutines, must not
// mutate the image bytes, and should honor ctx cancellation.
type Engine interface {
	// Name identifies the backend for logs and health reporting.
	Name() string
	// Available reports whether the backend is usable on this machine.
	Available() bool
	// Recognize runs OCR over encoded image bytes.
	Recognize(ctx context.Context, img []byte) (EngineResult, error)
}
