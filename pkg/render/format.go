package render

import (
	"strings"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// Format names an output format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatTree Format = "tree"
	FormatTerm Format = "term"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatJSON, FormatPNG, FormatPDF, FormatTree, FormatTerm}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of svg, json, png, pdf, tree, term)", s)
}

// ParseFormats parses a list, dropping duplicates while keeping order.
func ParseFormats(list []string) ([]Format, error) {
	seen := make(map[Format]bool, len(list))
	out := make([]Format, 0, len(list))
	for _, s := range list {
		f, err := ParseFormat(s)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatTree:
		return ".tree.svg"
	case FormatTerm:
		return ".txt"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of the rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG, FormatTree:
		return "image/svg+xml"
	case FormatJSON:
		return "application/json"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Binary reports whether the output is not text.
func (f Format) Binary() bool { return f == FormatPNG || f == FormatPDF }
