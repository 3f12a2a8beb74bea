package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/render"
)

// renderFlags holds the flags shared by commands that draw flame graphs.
type renderFlags struct {
	formats   string
	colorMode string
	palette   string
	inputFmt  string
}

func (f *renderFlags) register(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), json, png, pdf, tree, term (comma-separated)")
	cmd.Flags().StringVarP(&f.colorMode, "color-mode", "c", "", "color mode: peaks (default), width")
	cmd.Flags().StringVar(&f.palette, "palette", "", "9 comma-separated hex colors, coolest first")
	cmd.Flags().StringVar(&f.inputFmt, "input-format", "", "document format for stdin: json (default), yaml, toml")
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "canvas width in pixels")
	cmd.Flags().Float64Var(&opts.RowHeight, "row-height", 0, "row height in pixels")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title (default: document title)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit of interval bounds; adds width and share tooltips")
	cmd.Flags().BoolVar(&opts.Inverted, "inverted", false, "draw roots at the top (icicle)")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 0, "PNG resolution multiplier (default 2)")
	registerRenderCompletions(cmd)
}

// apply copies the string flags into opts.
func (f *renderFlags) apply(opts *pipeline.Options) {
	opts.Formats = parseFormats(f.formats)
	opts.ColorMode = flame.ColorMode(f.colorMode)
	opts.Palette = splitList(f.palette)
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   renderFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [file|url|-]",
		Short: "Render an interval document as a flame graph",
		Long: `Render an interval document as a flame graph.

The input is a JSON, YAML or TOML document (by extension), an http(s) URL,
or "-" for standard input. Each requested format is written next to the input
unless -o is given; "term" without -o prints to the terminal.

Invalid hierarchies still render: the output shows why nothing was drawn.
Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(&opts)
			c.applyConfig(&opts)
			return c.runRender(cmd.Context(), args[0], opts, output, flags.inputFmt, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	flags.register(cmd, &opts)

	return cmd
}

// runRender loads, lays out and renders input, then writes the artifacts.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output, inputFmt string, noCache bool) error {
	opts.SetRenderDefaults()
	formats, err := render.ParseFormats(opts.Formats)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx, c.Logger))
	spin := newSpinner(ctx, "Loading "+displayName(input)+"...")
	spin.Start()

	loadStart := time.Now()
	doc, sourceHit, err := loadDocument(ctx, runner, input, inputFmt, opts)
	if err != nil {
		spin.StopWithError("Could not read document")
		return fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(loadStart)

	spin.Update("%s", renderStageMessage(len(doc.Intervals), formats))
	result, err := runner.Run(ctx, doc, opts)
	if err != nil {
		spin.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spin.Stop()
	result.Stats.LoadTime = loadTime
	result.CacheInfo.SourceHit = sourceHit

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if !result.Layout.Valid() {
		printWarning("Invalid hierarchy: %s", result.Layout.Validation.Message)
	}
	printDiagnostics(result.Layout.Diagnostics)

	if err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   formats,
		input:     input,
		output:    output,
		stdout:    os.Stdout,
	}); err != nil {
		return err
	}
	printStats(result.Stats, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	prog.done("rendered flame graph",
		"formats", len(result.Artifacts),
		"rects", result.Stats.Rects,
		"diagnostics", result.Stats.Diagnostics)
	return nil
}

// readStdin decodes a document from r. The format defaults to JSON.
func readStdin(r io.Reader, format string) (*fio.Document, error) {
	f := fio.FormatJSON
	if format != "" {
		parsed, err := fio.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		f = parsed
	}
	return fio.ReadCollection(r, f)
}

// =============================================================================
// Artifact Output
// =============================================================================

type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []render.Format
	input     string
	output    string
	stdout    io.Writer
}

// writeArtifacts writes one file per format. A single format goes to output
// verbatim; several formats share output (or the input name) as base path.
// A lone "term" artifact without -o is printed instead. The input file is
// never overwritten.
func writeArtifacts(p artifactWriteParams) error {
	if len(p.formats) == 1 && p.formats[0] == render.FormatTerm && p.output == "" {
		_, err := fmt.Fprintln(p.stdout, string(p.artifacts[string(render.FormatTerm)]))
		return err
	}

	base := basePath(p.output, p.input)
	for _, format := range p.formats {
		target := base + format.Extension()
		if len(p.formats) == 1 && p.output != "" {
			target = p.output
		}
		if filepath.Clean(target) == filepath.Clean(p.input) {
			target = base + ".flame" + format.Extension()
		}
		if err := os.WriteFile(target, p.artifacts[string(format)], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		printFile(target)
	}
	return nil
}

// basePath derives the output path without extension. URLs use the last
// path segment and stdin writes "flame" in the working directory.
func basePath(output, input string) string {
	if output != "" {
		// Longest extensions first so ".tree.svg" wins over ".svg".
		for _, f := range []render.Format{render.FormatTree, render.FormatSVG, render.FormatJSON, render.FormatPNG, render.FormatPDF, render.FormatTerm} {
			if strings.HasSuffix(output, f.Extension()) {
				return strings.TrimSuffix(output, f.Extension())
			}
		}
		return output
	}
	switch {
	case input == stdinArg || input == "":
		return "flame"
	case fio.IsRemote(input):
		if u, err := url.Parse(input); err == nil {
			if name := path.Base(u.Path); name != "/" && name != "." {
				return strings.TrimSuffix(name, path.Ext(name))
			}
		}
		return "flame"
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// displayName shortens input for status messages.
func displayName(input string) string {
	switch {
	case input == stdinArg:
		return "standard input"
	case fio.IsRemote(input):
		return input
	}
	return filepath.Base(input)
}

// =============================================================================
// Flag Parsing
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// An empty string leaves the choice to the config file and pipeline defaults.
func parseFormats(s string) []string {
	return splitList(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDocument reads input from stdin ("-") or through the runner, which
// caches remote documents. The flag reports a remote cache hit.
func loadDocument(ctx context.Context, runner *pipeline.Runner, input, inputFmt string, opts pipeline.Options) (*fio.Document, bool, error) {
	if input == stdinArg {
		doc, err := readStdin(os.Stdin, inputFmt)
		return doc, false, err
	}
	return runner.LoadWithCacheInfo(ctx, input, opts)
}
