package flame

import (
	"strings"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// Interval is one labeled span of a flame graph, such as a stack frame, a
// request phase or a query-plan node.
type Interval struct {
	ID            string  `json:"id" yaml:"id" toml:"id"`
	Label         string  `json:"label" yaml:"label" toml:"label"`
	Start         float64 `json:"start" yaml:"start" toml:"start"`
	End           float64 `json:"end" yaml:"end" toml:"end"`
	ParentID      string  `json:"parent_id,omitempty" yaml:"parent_id,omitempty" toml:"parent_id,omitempty"`
	ColorOverride string  `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

// Width returns the span of the interval along the horizontal axis.
func (iv Interval) Width() float64 { return iv.End - iv.Start }

// IsRoot reports whether the interval has no parent.
func (iv Interval) IsRoot() bool { return iv.ParentID == "" }

// ColorMode selects how computed colors are assigned.
type ColorMode string

const (
	// ColorModePeaks colors by depth: deeper levels get darker bands.
	ColorModePeaks ColorMode = "peaks"
	// ColorModeWidth colors by span: wider intervals get brighter bands.
	ColorModeWidth ColorMode = "width"
)

// DefaultColorMode is used when no mode is configured.
const DefaultColorMode = ColorModePeaks

// ParseColorMode converts a user-supplied string into a ColorMode.
// Matching is case-insensitive; the empty string yields [DefaultColorMode].
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultColorMode, nil
	case ColorModePeaks:
		return ColorModePeaks, nil
	case ColorModeWidth:
		return ColorModeWidth, nil
	}
	return "", errs.New(errs.ErrCodeInvalidColorMode, "invalid color mode: %q (must be 'peaks' or 'width')", s)
}

// String implements fmt.Stringer.
func (m ColorMode) String() string { return string(m) }
