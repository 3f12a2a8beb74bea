// Package tree renders flame graph layouts as node-link diagrams with Graphviz.
//
// Each rectangle becomes a box filled with its flame color, connected to its
// parent. The diagram shows the resolved hierarchy and is handy for checking
// what a collection looks like when the flame view is too dense.
//
//	r, err := tree.New(ctx)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	svg, err := r.RenderSVG(ctx, l)
package tree

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/render/sink"
)

// ToDOT converts a layout to Graphviz DOT. Invalid layouts produce a single
// note node carrying the validation message.
func ToDOT(l flame.Layout) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	if len(l.Rects) == 0 {
		msg := "no intervals to display"
		if !l.Valid() {
			msg = l.Validation.Message
		}
		fmt.Fprintf(&buf, "  \"empty\" [shape=note, style=filled, fillcolor=\"#eeeeee\", label=%q];\n}\n", msg)
		return buf.String()
	}

	present := make(map[string]bool, len(l.Rects))
	for _, r := range l.Rects {
		present[r.ID] = true
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q, fontcolor=%q, tooltip=%q];\n",
			r.ID, nodeLabel(r), r.Color, sink.TextColor(r.Color), r.Tooltip)
	}

	buf.WriteString("\n")
	for _, r := range l.Rects {
		if r.ParentID != "" && present[r.ParentID] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", r.ParentID, r.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(r flame.Rect) string {
	return r.Label + "\n" + strconv.FormatFloat(r.Width(), 'g', 6, 64)
}

// Renderer owns a Graphviz runtime. It is not safe for concurrent use.
type Renderer struct {
	gv *graphviz.Graphviz
}

// New starts a Graphviz runtime. Callers must Close the renderer.
func New(ctx context.Context) (*Renderer, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	return &Renderer{gv: gv}, nil
}

// RenderSVG renders l as a node-link SVG.
func (r *Renderer) RenderSVG(ctx context.Context, l flame.Layout) ([]byte, error) {
	return r.RenderDOT(ctx, ToDOT(l))
}

// RenderDOT renders a DOT document to SVG.
func (r *Renderer) RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := r.gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Close releases the Graphviz runtime.
func (r *Renderer) Close() error {
	if r.gv == nil {
		return nil
	}
	err := r.gv.Close()
	r.gv = nil
	return err
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's pt-based svg header into a pixel one
// with an origin-anchored viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(strings.ReplaceAll(header, "$", "$$")))
}
