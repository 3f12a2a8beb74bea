package flame

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// =============================================================================
// Validation
// =============================================================================

// Validation reports whether a collection satisfies the single-root invariant.
type Validation struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message,omitempty"`
	Roots   []string `json:"roots,omitempty"`
}

// Err returns nil for a valid collection and an INVALID_HIERARCHY error otherwise.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return errs.New(errs.ErrCodeInvalidHierarchy, "%s", v.Message)
}

// Validate checks that exactly one interval has an empty ParentID.
// It is the blocking precondition of [Build].
func Validate(items []Interval) Validation {
	var roots []string
	for _, iv := range items {
		if iv.IsRoot() {
			roots = append(roots, iv.ID)
		}
	}
	switch len(roots) {
	case 0:
		return Validation{Message: "no root item found"}
	case 1:
		return Validation{Valid: true, Roots: roots}
	default:
		return Validation{
			Message: "found more than 1 root item: " + strings.Join(roots, ", "),
			Roots:   roots,
		}
	}
}

// =============================================================================
// Layout
// =============================================================================

// Rect is one drawable rectangle of a flame graph.
type Rect struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id,omitempty"`
	Level    int     `json:"level"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Label    string  `json:"label"`
	Tooltip  string  `json:"tooltip,omitempty"`
	Color    string  `json:"color"`
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.End - r.Start }

// Layout is the renderer-agnostic output of [Build].
type Layout struct {
	Validation  Validation   `json:"validation"`
	ColorMode   ColorMode    `json:"color_mode"`
	Rects       []Rect       `json:"rects"`
	MaxLevel    int          `json:"max_level"`
	MaxWidth    float64      `json:"max_width"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Valid reports whether the input passed root validation.
func (l Layout) Valid() bool { return l.Validation.Valid }

// Levels returns the number of rows occupied by rectangles.
func (l Layout) Levels() int {
	if len(l.Rects) == 0 {
		return 0
	}
	return l.MaxLevel + 1
}

// Span returns the width of the horizontal extent covered by all rectangles.
func (l Layout) Span() float64 { return l.Max - l.Min }

// Row returns the rectangles on one level ordered by start.
// Rects keeps input order; renderers that need geometric order use Row.
func (l Layout) Row(level int) []Rect {
	var row []Rect
	for _, r := range l.Rects {
		if r.Level == level {
			row = append(row, r)
		}
	}
	slices.SortStableFunc(row, func(a, b Rect) int { return cmp.Compare(a.Start, b.Start) })
	return row
}

// =============================================================================
// Options
// =============================================================================

// LabelFunc formats the text drawn on a rectangle or shown in its tooltip.
type LabelFunc func(iv Interval) string

// Option configures [Build].
type Option func(*builder)

type builder struct {
	mode    ColorMode
	palette Palette
	label   LabelFunc
	tooltip LabelFunc
	logger  *log.Logger
}

// WithColorMode selects depth-based or width-based coloring.
// Empty or unknown modes fall back to [DefaultColorMode].
func WithColorMode(m ColorMode) Option {
	return func(b *builder) {
		if m == ColorModePeaks || m == ColorModeWidth {
			b.mode = m
		}
	}
}

// WithPalette replaces [DefaultPalette].
func WithPalette(p Palette) Option { return func(b *builder) { b.palette = p } }

// WithLabelFunc formats rectangle labels. The default is the interval label,
// or its id when the label is empty.
func WithLabelFunc(fn LabelFunc) Option { return func(b *builder) { b.label = fn } }

// WithTooltipFunc formats rectangle tooltips. Without it tooltips are empty
// and renderers fall back to the label.
func WithTooltipFunc(fn LabelFunc) Option { return func(b *builder) { b.tooltip = fn } }

// WithLogger reports validation failures and diagnostics as warnings on l.
func WithLogger(l *log.Logger) Option { return func(b *builder) { b.logger = l } }

// DurationTooltip renders "label (width unit, pct% of total)" tooltips
// relative to the given total span.
func DurationTooltip(total float64, unit string) LabelFunc {
	return func(iv Interval) string {
		label := defaultLabel(iv)
		if total <= 0 {
			return fmt.Sprintf("%s (%g%s)", label, iv.Width(), unit)
		}
		pct := iv.Width() / total * 100
		return fmt.Sprintf("%s (%g%s, %.1f%%)", label, iv.Width(), unit, pct)
	}
}

func defaultLabel(iv Interval) string {
	if iv.Label != "" {
		return iv.Label
	}
	return iv.ID
}

// =============================================================================
// Build
// =============================================================================

// Build validates items, resolves levels, colors every renderable interval and
// returns the rectangles in input order.
//
// When validation fails the returned layout carries the failure in
// [Layout.Validation] and no rectangles: a forest without exactly one root is
// never partially drawn. Otherwise intervals are excluded when they are
// unresolved (orphans, cycles, detached), shadowed by a later duplicate id, or
// have End < Start; each exclusion appears in [Layout.Diagnostics].
//
// Colors are scaled against the deepest resolved level and the widest emitted
// rectangle. Build never modifies items and returns identical layouts for
// identical input.
func Build(items []Interval, opts ...Option) Layout {
	b := builder{mode: DefaultColorMode, palette: DefaultPalette, label: defaultLabel}
	for _, opt := range opts {
		opt(&b)
	}

	l := Layout{
		Validation: Validate(items),
		ColorMode:  b.mode,
		Rects:      []Rect{},
	}
	if !l.Valid() {
		if b.logger != nil {
			b.logger.Warn("invalid flame graph hierarchy", "reason", l.Validation.Message)
		}
		return l
	}

	res := Resolve(items)
	diags := slices.Clone(res.Diagnostics)

	last := make(map[string]int, len(items))
	for i, iv := range items {
		last[iv.ID] = i
	}

	var keep []int
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, iv := range items {
		if last[iv.ID] != i {
			continue
		}
		if _, ok := res.Level(iv.ID); !ok {
			continue
		}
		if !iv.IsRoot() {
			if _, ok := res.Level(iv.ParentID); !ok {
				continue
			}
		}
		if iv.End < iv.Start {
			diags = append(diags, invalidBoundsDiagnostic(iv))
			continue
		}
		keep = append(keep, i)
		l.MaxWidth = max(l.MaxWidth, iv.Width())
		lo, hi = min(lo, iv.Start), max(hi, iv.End)
	}

	if len(keep) > 0 {
		l.Min, l.Max = lo, hi
		l.MaxLevel = res.MaxLevel
	}

	l.Rects = make([]Rect, 0, len(keep))
	for _, i := range keep {
		iv := items[i]
		lvl := res.Levels[iv.ID]
		r := Rect{
			ID:       iv.ID,
			ParentID: iv.ParentID,
			Level:    lvl,
			Start:    iv.Start,
			End:      iv.End,
			Label:    b.label(iv),
			Color:    b.palette.ColorFor(iv, b.mode, lvl, res.MaxLevel, l.MaxWidth),
		}
		if b.tooltip != nil {
			r.Tooltip = b.tooltip(iv)
		}
		l.Rects = append(l.Rects, r)
	}

	l.Diagnostics = diags
	LogDiagnostics(b.logger, diags)
	return l
}

// =============================================================================
// Zoom
// =============================================================================

// Subtree returns id and all of its descendants in input order, with id
// promoted to root. It returns nil when id does not exist. Viewers use it to
// zoom into one frame and rebuild the layout from the smaller collection.
func Subtree(items []Interval, id string) []Interval {
	children := make(map[string][]string)
	found := false
	for _, iv := range items {
		if iv.ID == id {
			found = true
		}
		if !iv.IsRoot() {
			children[iv.ParentID] = append(children[iv.ParentID], iv.ID)
		}
	}
	if !found {
		return nil
	}

	keep := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range children[curr] {
			if !keep[child] {
				keep[child] = true
				queue = append(queue, child)
			}
		}
	}

	out := make([]Interval, 0, len(keep))
	for _, iv := range items {
		if !keep[iv.ID] {
			continue
		}
		if iv.ID == id {
			iv.ParentID = ""
		}
		out = append(out, iv)
	}
	return out
}
