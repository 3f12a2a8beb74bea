package sink

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/flametower/pkg/flame"
)

const frameCSS = `
    text { font-family: Verdana, "DejaVu Sans", sans-serif; font-size: 12px; pointer-events: none; }
    .title { font-size: 16px; font-weight: bold; }
    .empty { font-size: 14px; fill: #666666; }
    .frame rect { stroke: #ffffff; stroke-width: 0.5; }
    .frame:hover rect { stroke: #000000; stroke-width: 1; }
    .frame.dim { opacity: 0.35; }`

const frameJS = `
    function related(id) {
      const out = new Set([id]);
      let changed = true;
      while (changed) {
        changed = false;
        document.querySelectorAll('.frame').forEach(f => {
          if (out.has(f.dataset.parent) && !out.has(f.dataset.id)) { out.add(f.dataset.id); changed = true; }
        });
      }
      return out;
    }
    document.querySelectorAll('.frame').forEach(el => {
      el.addEventListener('mouseenter', () => {
        const keep = related(el.dataset.id);
        document.querySelectorAll('.frame').forEach(f => f.classList.toggle('dim', !keep.has(f.dataset.id)));
      });
      el.addEventListener('mouseleave', () => {
        document.querySelectorAll('.frame').forEach(f => f.classList.remove('dim'));
      });
    });`

// RenderSVG renders l as a standalone SVG document. Invalid layouts render
// an empty state showing the validation message.
func RenderSVG(l flame.Layout, opts ...Option) []byte {
	c := newConfig(opts...)
	canvas := c.frames(l)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		canvas.Width, canvas.Height, canvas.Width, canvas.Height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", frameCSS)
	fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%.1f" height="%.1f" fill="#ffffff"/>`+"\n", canvas.Width, canvas.Height)

	if c.title != "" {
		fmt.Fprintf(&buf, `  <text class="title" x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
			canvas.Width/2, margin+titleHeight/2+4, EscapeXML(c.title))
	}

	if len(canvas.Frames) == 0 {
		renderEmpty(&buf, c, canvas, l)
		buf.WriteString("</svg>\n")
		return buf.Bytes()
	}

	for _, f := range canvas.Frames {
		renderFrame(&buf, f, c.unit)
	}
	fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", frameJS)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderFrame(buf *bytes.Buffer, f Frame, unit string) {
	fmt.Fprintf(buf, `  <g class="frame" data-id="%s" data-parent="%s">`, EscapeXML(f.ID), EscapeXML(f.ParentID))
	fmt.Fprintf(buf, `<title>%s</title>`, EscapeXML(tooltip(f, unit)))
	fmt.Fprintf(buf, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`,
		f.X, f.Y, f.W, f.H, EscapeXML(f.Color))
	if label := FitLabel(f.Label, f.W); label != "" {
		fmt.Fprintf(buf, `<text x="%.2f" y="%.2f" fill="%s">%s</text>`,
			f.X+labelPadding, f.Y+f.H/2+fontSize/3, TextColor(f.Color), EscapeXML(label))
	}
	buf.WriteString("</g>\n")
}

func renderEmpty(buf *bytes.Buffer, c config, canvas Canvas, l flame.Layout) {
	msg := "no intervals to display"
	if !l.Valid() && l.Validation.Message != "" {
		msg = "invalid hierarchy: " + l.Validation.Message
	}
	fmt.Fprintf(buf, `  <text class="empty" x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
		canvas.Width/2, c.top()+emptyHeight/2, EscapeXML(msg))
}
