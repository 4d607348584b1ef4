// Package overlay derives display data from recognition results: one shape
// per word, carrying the word's bounding quad and a confidence tier that
// maps to a highlight color.
package overlay

import (
	"fmt"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

// Tier buckets a word confidence for display purposes.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// Tier boundaries. A confidence below lowCutoff is low, below highCutoff
// medium, anything else high. The boundary values themselves fall into the
// upper bucket.
const (
	lowCutoff  = 0.33
	highCutoff = 0.67
)

// TierFor maps a confidence in [0,1] to its tier.
func TierFor(confidence float64) Tier {
	switch {
	case confidence < lowCutoff:
		return TierLow
	case confidence < highCutoff:
		return TierMedium
	default:
		return TierHigh
	}
}

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Color returns the highlight color conventionally used for the tier.
func (t Tier) Color() string {
	switch t {
	case TierLow:
		return "#d93025"
	case TierMedium:
		return "#f9ab00"
	case TierHigh:
		return "#188038"
	}
	return "#000000"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "low":
		*t = TierLow
	case "medium":
		*t = TierMedium
	case "high":
		*t = TierHigh
	default:
		return fmt.Errorf("unknown confidence tier %q", text)
	}
	return nil
}

// Shape is one word highlight.
type Shape struct {
	Quad       ocr.BoundingBox `json:"quad"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Tier       Tier            `json:"tier"`
	Color      string          `json:"color"`
}

// Build flattens rt into shapes, one per word, in reading order. Lines
// without word geometry (text-only engines) contribute no shapes.
func Build(rt *ocr.RecognizedText) []Shape {
	if rt == nil {
		return nil
	}
	var shapes []Shape
	for _, line := range rt.Lines {
		for _, w := range line.Words {
			tier := TierFor(w.Confidence)
			shapes = append(shapes, Shape{
				Quad:       w.Bounds,
				Text:       w.Text,
				Confidence: w.Confidence,
				Tier:       tier,
				Color:      tier.Color(),
			})
		}
	}
	return shapes
}
