package pdfdate

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "quoted_offset", raw: "D:20240419110302+02'00'", want: time.Date(2024, 4, 19, 11, 3, 2, 0, time.FixedZone("", 2*60*60))},
		{name: "zulu", raw: "D:20240419110302Z", want: time.Date(2024, 4, 19, 11, 3, 2, 0, time.UTC)},
		{name: "no_tz", raw: "D:20240419110302", want: time.Date(2024, 4, 19, 11, 3, 2, 0, time.UTC)},
		{name: "no_prefix", raw: "20240419110302Z", want: time.Date(2024, 4, 19, 11, 3, 2, 0, time.UTC)},
		{name: "garbage", raw: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseOrZero(t *testing.T) {
	if !ParseOrZero("garbage").IsZero() {
		t.Error("expected zero time for an unparsable date")
	}
	if ParseOrZero("D:20240419110302Z").IsZero() {
		t.Error("expected a parsed time")
	}
}
