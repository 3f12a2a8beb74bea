package io

import (
	"net/url"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML}

// ParseFormat accepts a format name case-insensitively; "yml" is an alias for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported document format: %q", s)
}

// FormatFromPath derives the format from a file path or URL extension.
func FormatFromPath(path string) (Format, error) {
	if u, err := url.Parse(path); err == nil && u.Scheme != "" && u.Host != "" {
		path = u.Path
	}
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errs.New(errs.ErrCodeInvalidFormat, "cannot detect format of %q", path)
	}
	return ParseFormat(ext)
}
