package sink

import (
	"encoding/json"

	"github.com/matzehuels/flametower/pkg/flame"
)

type jsonOutput struct {
	Title       string             `json:"title,omitempty"`
	Validation  flame.Validation   `json:"validation"`
	ColorMode   flame.ColorMode    `json:"color_mode"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	Levels      int                `json:"levels"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Frames      []Frame            `json:"frames"`
	Diagnostics []flame.Diagnostic `json:"diagnostics,omitempty"`
}

// RenderJSON exports the layout together with its canvas geometry.
func RenderJSON(l flame.Layout, opts ...Option) ([]byte, error) {
	c := newConfig(opts...)
	canvas := c.frames(l)
	out := jsonOutput{
		Title:       c.title,
		Validation:  l.Validation,
		ColorMode:   l.ColorMode,
		Width:       canvas.Width,
		Height:      canvas.Height,
		Levels:      l.Levels(),
		Min:         l.Min,
		Max:         l.Max,
		Frames:      canvas.Frames,
		Diagnostics: l.Diagnostics,
	}
	return json.MarshalIndent(out, "", "  ")
}
