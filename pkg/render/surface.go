package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/render/sink"
	"github.com/matzehuels/flametower/pkg/render/tree"
)

// Options configures a surface. Zero values select sink defaults.
type Options struct {
	Width     float64
	RowHeight float64
	Title     string
	Inverted  bool
	Unit      string
	// Scale is the PNG resolution multiplier (default 2).
	Scale float64
	// TermWidth is the column count of the term format (default 80).
	TermWidth int
}

func (o Options) sinkOptions() []sink.Option {
	opts := []sink.Option{
		sink.WithWidth(o.Width),
		sink.WithRowHeight(o.RowHeight),
		sink.WithTitle(o.Title),
		sink.WithUnit(o.Unit),
	}
	if o.Inverted {
		opts = append(opts, sink.WithInverted())
	}
	return opts
}

// Surface draws layouts in one format.
type Surface interface {
	Render(ctx context.Context, l flame.Layout, w io.Writer) error
	Close() error
}

type drawer interface {
	draw(ctx context.Context, l flame.Layout) ([]byte, error)
	close() error
}

// surface guards a drawer with the open/closed lifecycle.
type surface struct {
	format Format
	d      drawer
	closed bool
}

// Open acquires a surface for format. PNG and PDF fail with UNSUPPORTED when
// rsvg-convert is missing.
func Open(ctx context.Context, format Format, opts Options) (Surface, error) {
	var d drawer
	switch format {
	case FormatSVG:
		d = svgDrawer{opts: opts.sinkOptions()}
	case FormatJSON:
		d = jsonDrawer{opts: opts.sinkOptions()}
	case FormatPNG, FormatPDF:
		if !sink.ConverterAvailable() {
			return nil, errs.New(errs.ErrCodeUnsupported, "%s export requires rsvg-convert (librsvg)", format)
		}
		d = rasterDrawer{format: format, scale: opts.Scale, opts: opts.sinkOptions()}
	case FormatTree:
		r, err := tree.New(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "open tree surface")
		}
		d = treeDrawer{r: r}
	case FormatTerm:
		d = termDrawer{opts: sink.TermOptions{Width: opts.TermWidth, Inverted: opts.Inverted}}
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	return &surface{format: format, d: d}, nil
}

// Render draws l to w.
func (s *surface) Render(ctx context.Context, l flame.Layout, w io.Writer) error {
	if s.closed {
		return errs.New(errs.ErrCodeInternal, "%s surface is closed", s.format)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.d.draw(ctx, l)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", s.format, err)
	}
	return nil
}

// Close releases the surface. Closing twice is a no-op.
func (s *surface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.d.close()
}

// With opens a surface, passes it to fn and closes it afterwards. A close
// error is returned only when fn succeeded.
func With(ctx context.Context, format Format, opts Options, fn func(Surface) error) (err error) {
	s, err := Open(ctx, format, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Bytes renders l in one format and returns the output.
func Bytes(ctx context.Context, format Format, l flame.Layout, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	err := With(ctx, format, opts, func(s Surface) error {
		return s.Render(ctx, l, &buf)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Drawers
// =============================================================================

type svgDrawer struct{ opts []sink.Option }

func (d svgDrawer) draw(_ context.Context, l flame.Layout) ([]byte, error) {
	return sink.RenderSVG(l, d.opts...), nil
}
func (svgDrawer) close() error { return nil }

type jsonDrawer struct{ opts []sink.Option }

func (d jsonDrawer) draw(_ context.Context, l flame.Layout) ([]byte, error) {
	return sink.RenderJSON(l, d.opts...)
}
func (jsonDrawer) close() error { return nil }

type rasterDrawer struct {
	format Format
	scale  float64
	opts   []sink.Option
}

func (d rasterDrawer) draw(ctx context.Context, l flame.Layout) ([]byte, error) {
	if d.format == FormatPDF {
		return sink.RenderPDF(ctx, l, d.opts...)
	}
	return sink.RenderPNG(ctx, l, d.scale, d.opts...)
}
func (rasterDrawer) close() error { return nil }

type treeDrawer struct{ r *tree.Renderer }

func (d treeDrawer) draw(ctx context.Context, l flame.Layout) ([]byte, error) {
	return d.r.RenderSVG(ctx, l)
}
func (d treeDrawer) close() error { return d.r.Close() }

type termDrawer struct{ opts sink.TermOptions }

func (d termDrawer) draw(_ context.Context, l flame.Layout) ([]byte, error) {
	return []byte(sink.RenderTerminal(l, d.opts) + "\n"), nil
}
func (termDrawer) close() error { return nil }
