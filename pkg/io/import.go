package io

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/httputil"
)

// Document is a titled interval collection.
type Document struct {
	Title     string           `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	ColorMode flame.ColorMode  `json:"color_mode,omitempty" yaml:"color_mode,omitempty" toml:"color_mode,omitempty"`
	Intervals []flame.Interval `json:"intervals" yaml:"intervals" toml:"intervals"`
}

// ReadCollection decodes a document from r in the given format.
// ReadCollection does not close r.
func ReadCollection(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Decode(data, format)
}

// Decode decodes a document from data in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Intervals); err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode json")
			}
			break
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode json")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode yaml")
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode toml")
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported document format: %q", format)
	}

	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) normalize() error {
	mode, err := flame.ParseColorMode(string(d.ColorMode))
	if err != nil {
		return err
	}
	d.ColorMode = mode
	if d.Intervals == nil {
		d.Intervals = []flame.Interval{}
	}
	for i, iv := range d.Intervals {
		if err := errs.ValidateID(iv.ID); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "interval %d", i)
		}
		if iv.ColorOverride != "" {
			if err := errs.ValidateColor(iv.ColorOverride); err != nil {
				return errs.Wrap(errs.ErrCodeInvalidInput, err, "interval %q", iv.ID)
			}
		}
	}
	return nil
}

// ImportFile reads the document at path, choosing the format by extension.
func ImportFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCollection(f, format)
}

// Load reads a document from a local path or an http(s) URL. Remote
// documents without a recognizable extension are decoded as JSON. A nil
// client uses [httputil.NewClient] defaults.
func Load(ctx context.Context, src string, client *httputil.Client) (*Document, error) {
	if !IsRemote(src) {
		return ImportFile(src)
	}
	if client == nil {
		client = httputil.NewClient(nil)
	}
	format, err := FormatFromPath(src)
	if err != nil {
		format = FormatJSON
	}
	data, err := client.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return Decode(data, format)
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
