package flame

import (
	"math"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// Bands is the number of colors in a palette.
const Bands = 9

// middleBand is the fallback for inputs with nothing to scale against.
const middleBand = Bands / 2

// Palette is a fixed gradient ordered from lightest to darkest.
type Palette [Bands]string

// DefaultPalette is a warm gradient from pale cream to deep rust.
var DefaultPalette = Palette{
	"#fff5eb",
	"#fee6ce",
	"#fdd0a2",
	"#fdae6b",
	"#fd8d3c",
	"#f16913",
	"#d94801",
	"#a63603",
	"#7f2704",
}

// ParsePalette builds a palette from exactly [Bands] hex colors.
func ParsePalette(colors []string) (Palette, error) {
	var p Palette
	if len(colors) != Bands {
		return p, errs.New(errs.ErrCodeInvalidPalette, "palette needs %d colors, got %d", Bands, len(colors))
	}
	for i, c := range colors {
		if err := errs.ValidateColor(c); err != nil {
			return p, err
		}
		p[i] = c
	}
	return p, nil
}

// Color returns the band color for the given metrics. See [BandIndex].
func (p Palette) Color(mode ColorMode, level, maxLevel int, width, maxWidth float64) string {
	return p[BandIndex(mode, level, maxLevel, width, maxWidth)]
}

// ColorFor returns iv's color override when set, otherwise the computed band color.
func (p Palette) ColorFor(iv Interval, mode ColorMode, level, maxLevel int, maxWidth float64) string {
	if iv.ColorOverride != "" {
		return iv.ColorOverride
	}
	return p.Color(mode, level, maxLevel, iv.Width(), maxWidth)
}

// BandIndex maps a resolved interval to a palette index in [0, Bands).
//
// In [ColorModePeaks] the index follows depth: each level has its own band
// while maxLevel < Bands (root lightest), deeper trees share bands by integer
// division with ceil(maxLevel/Bands). A tree with a single level uses the
// middle band.
//
// In [ColorModeWidth] the width is bucketed by ceil(maxWidth/Bands) and the
// bucket is reversed so the widest intervals get the brightest bands. The step
// is at least 1, so on scales below Bands every interval lands in a dark band.
// A non-positive maxWidth uses the middle band.
//
// Unknown modes are treated as [ColorModePeaks]. BandIndex is pure.
func BandIndex(mode ColorMode, level, maxLevel int, width, maxWidth float64) int {
	if mode == ColorModeWidth {
		return widthBand(width, maxWidth)
	}
	return peaksBand(level, maxLevel)
}

func peaksBand(level, maxLevel int) int {
	if maxLevel <= 0 {
		return middleBand
	}
	if maxLevel < Bands {
		return clampBand(level)
	}
	step := (maxLevel + Bands - 1) / Bands
	return clampBand(level / step)
}

func widthBand(width, maxWidth float64) int {
	if !(maxWidth > 0) || math.IsInf(maxWidth, 0) {
		return middleBand
	}
	step := math.Ceil(maxWidth / Bands)
	bucket := clampBand(int(math.Floor(width / step)))
	return Bands - 1 - bucket
}

func clampBand(i int) int {
	return min(max(i, 0), Bands-1)
}
