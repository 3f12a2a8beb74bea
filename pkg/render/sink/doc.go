// Package sink renders flame graph layouts into output formats.
//
// # Overview
//
// A sink turns a computed [flame.Layout] into bytes or text:
//
//   - SVG: standalone flame graph with tooltips and hover highlighting
//   - JSON: the layout plus pixel frames for external tools
//   - PDF and PNG: SVG converted by rsvg-convert
//   - Terminal: ANSI-colored rows for the CLI and the interactive viewer
//
// # Geometry
//
// All graphical sinks share [Frames], which maps every rectangle onto a
// canvas: the horizontal extent of the layout fills the canvas width and each
// level occupies one row. By default the root sits at the bottom (a flame
// graph); [WithInverted] puts it on top (an icicle chart).
//
//	svg := sink.RenderSVG(l,
//	    sink.WithWidth(1200),
//	    sink.WithTitle("GET /checkout"),
//	)
//
// # Invalid Layouts
//
// A layout that failed root validation has no rectangles. The SVG and
// terminal sinks draw an empty state with the validation message instead of
// a chart; the JSON sink reports the validation result.
//
// # PDF and PNG Output
//
// [RenderPDF] and [RenderPNG] require librsvg:
//   - macOS: brew install librsvg
//   - Linux: apt install librsvg2-bin
package sink
