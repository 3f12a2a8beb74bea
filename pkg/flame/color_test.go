package flame

import (
	"math"
	"testing"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

func TestBandIndexPeaks(t *testing.T) {
	tests := []struct {
		name            string
		level, maxLevel int
		want            int
	}{
		{"single level uses middle band", 0, 0, middleBand},
		{"root of shallow tree", 0, 1, 0},
		{"child of shallow tree", 1, 1, 1},
		{"each level distinct below nine", 8, 8, 8},
		{"nine levels clamp to darkest", 9, 9, 8},
		{"eighteen levels compress by two", 9, 18, 4},
		{"deep root", 0, 40, 0},
		{"deep middle", 20, 40, 4},
		{"deep leaf", 40, 40, 8},
		{"negative level clamps", -3, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BandIndex(ColorModePeaks, tt.level, tt.maxLevel, 0, 0)
			if got != tt.want {
				t.Errorf("BandIndex(peaks, %d, %d) = %d, want %d", tt.level, tt.maxLevel, got, tt.want)
			}
		})
	}
}

func TestBandIndexWidth(t *testing.T) {
	tests := []struct {
		name            string
		width, maxWidth float64
		want            int
	}{
		{"widest is brightest", 100, 100, 0},
		{"zero width is darkest", 0, 100, 8},
		{"half width", 50, 100, 4},
		{"small scale widest", 5, 5, 3},
		{"small scale middle", 3, 5, 5},
		{"sub-unit scale", 0.45, 0.9, 8},
		{"sub-unit widest", 0.9, 0.9, 8},
		{"step rounds up", 20, 20, 2},
		{"zero max width", 0, 0, middleBand},
		{"negative max width", 1, -5, middleBand},
		{"NaN max width", 1, math.NaN(), middleBand},
		{"infinite max width", 1, math.Inf(1), middleBand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BandIndex(ColorModeWidth, 0, 0, tt.width, tt.maxWidth)
			if got != tt.want {
				t.Errorf("BandIndex(width, %g, %g) = %d, want %d", tt.width, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestBandIndexAlwaysInRange(t *testing.T) {
	for maxLevel := 0; maxLevel < 60; maxLevel++ {
		for level := 0; level <= maxLevel; level++ {
			if got := BandIndex(ColorModePeaks, level, maxLevel, 0, 0); got < 0 || got >= Bands {
				t.Fatalf("BandIndex(peaks, %d, %d) = %d, out of range", level, maxLevel, got)
			}
		}
	}
	for _, maxWidth := range []float64{0.01, 1, 8, 9, 10, 17, 1000, 1e9} {
		for _, frac := range []float64{0, 0.1, 0.33, 0.5, 0.99, 1} {
			if got := BandIndex(ColorModeWidth, 0, 0, maxWidth*frac, maxWidth); got < 0 || got >= Bands {
				t.Fatalf("BandIndex(width, %g, %g) = %d, out of range", maxWidth*frac, maxWidth, got)
			}
		}
	}
}

func TestBandIndexUnknownModeIsPeaks(t *testing.T) {
	if got, want := BandIndex("bogus", 1, 1, 0, 0), BandIndex(ColorModePeaks, 1, 1, 0, 0); got != want {
		t.Errorf("BandIndex(bogus) = %d, want %d", got, want)
	}
}

func TestColorForOverrideWins(t *testing.T) {
	item := Interval{ID: "x", Start: 0, End: 10, ColorOverride: "#123456"}
	for _, mode := range []ColorMode{ColorModePeaks, ColorModeWidth} {
		if got := DefaultPalette.ColorFor(item, mode, 3, 5, 10); got != "#123456" {
			t.Errorf("ColorFor(%s) = %q, want override", mode, got)
		}
	}
	item.ColorOverride = ""
	first := DefaultPalette.ColorFor(item, ColorModeWidth, 3, 5, 10)
	second := DefaultPalette.ColorFor(item, ColorModeWidth, 3, 5, 10)
	if first != second {
		t.Errorf("ColorFor() not deterministic: %q then %q", first, second)
	}
}

func TestParsePalette(t *testing.T) {
	valid := DefaultPalette[:]
	p, err := ParsePalette(valid)
	if err != nil {
		t.Fatalf("ParsePalette() error = %v", err)
	}
	if p != DefaultPalette {
		t.Errorf("ParsePalette() = %v, want %v", p, DefaultPalette)
	}

	if _, err := ParsePalette(valid[:8]); !errs.Is(err, errs.ErrCodeInvalidPalette) {
		t.Errorf("ParsePalette(8 colors) error = %v, want INVALID_PALETTE", err)
	}

	bad := append([]string(nil), valid...)
	bad[3] = "orange"
	if _, err := ParsePalette(bad); !errs.Is(err, errs.ErrCodeInvalidPalette) {
		t.Errorf("ParsePalette(named color) error = %v, want INVALID_PALETTE", err)
	}
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"", ColorModePeaks, false},
		{"peaks", ColorModePeaks, false},
		{"WIDTH", ColorModeWidth, false},
		{" width ", ColorModeWidth, false},
		{"depth", "", true},
	}
	for _, tt := range tests {
		got, err := ParseColorMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColorMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColorMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
