package overlay

import (
	"testing"

	"github.com/textrec/text-recognition-service/pkg/ocr"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       Tier
	}{
		{name: "zero", confidence: 0, want: TierLow},
		{name: "below_low_cutoff", confidence: 0.32, want: TierLow},
		{name: "at_low_cutoff", confidence: 0.33, want: TierMedium},
		{name: "mid", confidence: 0.5, want: TierMedium},
		{name: "below_high_cutoff", confidence: 0.66, want: TierMedium},
		{name: "at_high_cutoff", confidence: 0.67, want: TierHigh},
		{name: "one", confidence: 1, want: TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierFor(tt.confidence); got != tt.want {
				t.Errorf("TierFor(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestTierText(t *testing.T) {
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		text, err := tier.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Tier
		if err := back.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if back != tier {
			t.Errorf("round trip of %s yielded %s", tier, back)
		}
	}
	var tier Tier
	if err := tier.UnmarshalText([]byte("extreme")); err == nil {
		t.Error("expected an error for an unknown tier name")
	}
}

func TestBuild(t *testing.T) {
	rt := &ocr.RecognizedText{Lines: []ocr.Line{
		{Text: "Hello world", Words: []ocr.Word{
			{Text: "Hello", Bounds: ocr.QuadFromRect(10, 10, 40, 12), Confidence: 0.95},
			{Text: "world", Bounds: ocr.QuadFromRect(60, 10, 40, 12), Confidence: 0.4},
		}},
		{Text: "no geometry here"},
	}}
	shapes := Build(rt)
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
	if shapes[0].Tier != TierHigh || shapes[0].Color != "#188038" {
		t.Errorf("shape 1 = %+v", shapes[0])
	}
	if shapes[1].Tier != TierMedium || shapes[1].Color != "#f9ab00" {
		t.Errorf("shape 2 = %+v", shapes[1])
	}
	if shapes[0].Quad != rt.Lines[0].Words[0].Bounds {
		t.Error("shape must carry the word quad")
	}
	if Build(nil) != nil {
		t.Error("expected no shapes for nil input")
	}
}

func TestBuildFlagsUncertainWords(t *testing.T) {
	rt := &ocr.RecognizedText{Lines: []ocr.Line{
		{Text: "HELLO WORLD", Words: []ocr.Word{
			{Text: "HELLO", Bounds: ocr.QuadFromRect(0, 0, 50, 14), Confidence: 0.9},
			{Text: "WORLD", Bounds: ocr.QuadFromRect(60, 0, 55, 14), Confidence: 0.2},
		}},
	}}
	if got := rt.FlatText(); got != "HELLO WORLD" {
		t.Errorf("FlatText() = %q, want %q", got, "HELLO WORLD")
	}
	shapes := Build(rt)
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
	if shapes[0].Tier != TierHigh {
		t.Errorf("HELLO tier = %v, want %v", shapes[0].Tier, TierHigh)
	}
	if shapes[1].Tier != TierLow {
		t.Errorf("WORLD tier = %v, want %v", shapes[1].Tier, TierLow)
	}
}
