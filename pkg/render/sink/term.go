package sink

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/flametower/pkg/flame"
)

// DefaultTermWidth is used when TermOptions.Width is not positive.
const DefaultTermWidth = 80

// TermOptions configures [RenderTerminal].
type TermOptions struct {
	Width    int
	Inverted bool
	// Selected is drawn bold and underlined.
	Selected string
}

var (
	termEmptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	termSelectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderTerminal draws l as colored text rows, one row per level. Each
// rectangle covers at least one column.
func RenderTerminal(l flame.Layout, o TermOptions) string {
	cols := o.Width
	if cols <= 0 {
		cols = DefaultTermWidth
	}
	if len(l.Rects) == 0 {
		msg := "no intervals to display"
		if !l.Valid() && l.Validation.Message != "" {
			msg = "invalid hierarchy: " + l.Validation.Message
		}
		return termEmptyStyle.Render(msg)
	}

	levels := l.Levels()
	rows := make([]string, levels)
	for level := range levels {
		row := l.Row(level)
		line := renderTermRow(row, l.Min, l.Span(), cols, o.Selected)
		idx := levels - 1 - level
		if o.Inverted {
			idx = level
		}
		rows[idx] = line
	}
	return strings.Join(rows, "\n")
}

// Columns maps a rectangle to its [start, end) column range.
func Columns(r flame.Rect, lo, span float64, cols int) (int, int) {
	if span <= 0 {
		return 0, cols
	}
	x0 := int(math.Round((r.Start - lo) / span * float64(cols)))
	x1 := int(math.Round((r.End - lo) / span * float64(cols)))
	x0 = max(0, min(x0, cols-1))
	x1 = max(x0+1, min(x1, cols))
	return x0, x1
}

func renderTermRow(row []flame.Rect, lo, span float64, cols int, selected string) string {
	var b strings.Builder
	cursor := 0
	for _, r := range row {
		x0, x1 := Columns(r, lo, span, cols)
		if x0 < cursor {
			x0 = cursor
		}
		if x1 <= x0 {
			continue
		}
		if x0 > cursor {
			b.WriteString(strings.Repeat(" ", x0-cursor))
		}

		n := x1 - x0
		text := truncate(r.Label, n)
		text += strings.Repeat(" ", n-len([]rune(text)))

		style := lipgloss.NewStyle().
			Background(lipgloss.Color(r.Color)).
			Foreground(lipgloss.Color(TextColor(r.Color)))
		if r.ID == selected {
			style = style.Inherit(termSelectedStyle)
		}
		b.WriteString(style.Render(text))
		cursor = x1
	}
	if cursor < cols {
		b.WriteString(strings.Repeat(" ", cols-cursor))
	}
	return b.String()
}
