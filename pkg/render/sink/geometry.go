package sink

import (
	"github.com/matzehuels/flametower/pkg/flame"
)

const (
	DefaultWidth     = 1200.0
	DefaultRowHeight = 18.0

	margin      = 10.0
	titleHeight = 28.0
	emptyHeight = 120.0
)

// Option configures the graphical sinks.
type Option func(*config)

type config struct {
	width     float64
	rowHeight float64
	title     string
	inverted  bool
	unit      string
}

// WithWidth sets the canvas width in pixels.
func WithWidth(w float64) Option {
	return func(c *config) {
		if w > 0 {
			c.width = w
		}
	}
}

// WithRowHeight sets the height of one level in pixels.
func WithRowHeight(h float64) Option {
	return func(c *config) {
		if h > 0 {
			c.rowHeight = h
		}
	}
}

// WithTitle draws a heading above the chart.
func WithTitle(s string) Option { return func(c *config) { c.title = s } }

// WithInverted places the root at the top.
func WithInverted() Option { return func(c *config) { c.inverted = true } }

// WithUnit appends a unit to widths in default tooltips.
func WithUnit(u string) Option { return func(c *config) { c.unit = u } }

func newConfig(opts ...Option) config {
	c := config{width: DefaultWidth, rowHeight: DefaultRowHeight}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Frame is a rectangle placed on the canvas.
type Frame struct {
	flame.Rect
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Canvas is the pixel geometry of a layout.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Frames []Frame `json:"frames"`
}

// Frames places every rectangle of l on a canvas. Frames keep the layout's
// rectangle order.
func Frames(l flame.Layout, opts ...Option) Canvas {
	return newConfig(opts...).frames(l)
}

func (c config) top() float64 {
	if c.title != "" {
		return margin + titleHeight
	}
	return margin
}

func (c config) frames(l flame.Layout) Canvas {
	top := c.top()
	if len(l.Rects) == 0 {
		return Canvas{Width: c.width, Height: top + emptyHeight, Frames: []Frame{}}
	}

	levels := l.Levels()
	innerW := c.width - 2*margin
	scale := 0.0
	if span := l.Span(); span > 0 {
		scale = innerW / span
	}

	frames := make([]Frame, len(l.Rects))
	for i, r := range l.Rects {
		row := levels - 1 - r.Level
		if c.inverted {
			row = r.Level
		}
		frames[i] = Frame{
			Rect: r,
			X:    margin + (r.Start-l.Min)*scale,
			Y:    top + float64(row)*c.rowHeight,
			W:    r.Width() * scale,
			H:    c.rowHeight,
		}
	}
	return Canvas{
		Width:  c.width,
		Height: top + float64(levels)*c.rowHeight + margin,
		Frames: frames,
	}
}
