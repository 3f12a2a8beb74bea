// Package render provides rendering surfaces for flame graph layouts.
//
// # Overview
//
// A [Surface] draws a computed [flame.Layout] to an io.Writer in one output
// format. Surfaces are opened with [Open] and must be closed; some own
// external resources (the tree surface runs a Graphviz runtime). [With]
// scopes a surface to a callback and always closes it:
//
//	err := render.With(ctx, render.FormatSVG, render.Options{Width: 1200}, func(s render.Surface) error {
//	    return s.Render(ctx, layout, w)
//	})
//
// # Formats
//
//   - svg: standalone flame graph ([sink.RenderSVG])
//   - json: layout plus pixel frames ([sink.RenderJSON])
//   - png, pdf: SVG converted with rsvg-convert
//   - tree: Graphviz node-link diagram ([tree.Renderer])
//   - term: ANSI-colored rows ([sink.RenderTerminal])
//
// A Surface is not safe for concurrent use. Open one surface per goroutine.
//
// [sink.RenderSVG]: github.com/matzehuels/flametower/pkg/render/sink.RenderSVG
// [sink.RenderJSON]: github.com/matzehuels/flametower/pkg/render/sink.RenderJSON
// [sink.RenderTerminal]: github.com/matzehuels/flametower/pkg/render/sink.RenderTerminal
// [tree.Renderer]: github.com/matzehuels/flametower/pkg/render/tree.Renderer
package render
