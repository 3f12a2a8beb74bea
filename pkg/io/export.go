package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/flametower/pkg/errors"
)

// WriteJSON encodes doc as indented JSON. The output can be re-read with
// [ReadCollection].
func WriteJSON(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Write encodes doc in the given format.
func Write(doc *Document, w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(doc, w)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	}
	return errs.New(errs.ErrCodeInvalidFormat, "unsupported document format: %q", format)
}

// ExportFile writes doc to path in the format matching its extension.
func ExportFile(doc *Document, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(doc, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
