package sink

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	fontSize      = 12.0
	fontCharWidth = 0.6
	labelPadding  = 3.0
	minLabelChars = 3
)

// FitLabel truncates label to what fits in width pixels. It returns "" when
// fewer than three characters fit.
func FitLabel(label string, width float64) string {
	maxChars := int((width - 2*labelPadding) / (fontSize * fontCharWidth))
	return truncate(label, maxChars)
}

func truncate(label string, maxChars int) string {
	if maxChars < minLabelChars {
		return ""
	}
	runes := []rune(label)
	if len(runes) <= maxChars {
		return label
	}
	return string(runes[:maxChars-2]) + ".."
}

// EscapeXML escapes s for use in SVG text and attributes.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// TextColor returns black or white, whichever reads better on background.
// Unparseable colors get black.
func TextColor(background string) string {
	c, err := colorful.Hex(expandHex(background))
	if err != nil {
		return "#000000"
	}
	l, _, _ := c.Lab()
	if l < 0.55 {
		return "#ffffff"
	}
	return "#000000"
}

// expandHex turns #abc into #aabbcc.
func expandHex(s string) string {
	if len(s) != 4 || !strings.HasPrefix(s, "#") {
		return s
	}
	return "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
}

func tooltip(r Frame, unit string) string {
	if r.Tooltip != "" {
		return r.Tooltip
	}
	return r.Label + " (" + strconv.FormatFloat(r.Width(), 'g', -1, 64) + unit + ")"
}
