// Package output serializes result bundles to files and streams.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatChat  Format = "chat"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatChat}

// ParseFormat resolves a user-supplied format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Writer serializes values to an underlying stream.
type Writer interface {
	// Write outputs a single value.
	Write(data any) error

	// Close flushes anything buffered.
	Close() error
}

// NewWriter creates a writer for format.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatJSON, "":
		return newJSONWriter(w, "  "), nil
	case FormatJSONL:
		return newJSONWriter(w, ""), nil
	case FormatYAML:
		return newYAMLWriter(w), nil
	case FormatChat:
		return &chatWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
