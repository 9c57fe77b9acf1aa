package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/pkg/recipe"
)

// DefaultPath is where results are written when no path is given.
const DefaultPath = "shopping_list.json"

// WriteError reports a failure to persist a result bundle.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Marshal serializes b in format.
func Marshal(b *recipe.ResultBundle, format Format) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format)
	if err != nil {
		return nil, err
	}
	if err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBundle serializes b in memory and then replaces path with it. The
// file is written to a temporary sibling and renamed into place, so a failed
// write never leaves a partial document. All failures are *WriteError.
func WriteBundle(path string, b *recipe.ResultBundle, format Format) error {
	if path == "" {
		path = DefaultPath
	}

	data, err := Marshal(b, format)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}

	logger.Info("results saved", "path", path, "format", string(format), "bytes", len(data))
	return nil
}

// ReadBundle loads a bundle previously written as JSON or YAML. The format
// is chosen by file extension; anything other than .yaml or .yml is JSON.
func ReadBundle(path string) (*recipe.ResultBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b recipe.ResultBundle
	switch FormatForPath(path) {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &b, nil
}

// FormatForPath picks the format implied by a file extension: YAML for
// .yaml/.yml, JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Extension returns the file extension written for f.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatJSONL:
		return ".jsonl"
	case FormatChat:
		return ".txt"
	}
	return ".json"
}

// PathFor returns DefaultPath with the extension of format.
func PathFor(format Format) string {
	return strings.TrimSuffix(DefaultPath, filepath.Ext(DefaultPath)) + format.Extension()
}

// CheckPath rejects a path whose extension would make ReadBundle decode a
// file written in format with the wrong parser.
func CheckPath(path string, format Format) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch format {
	case FormatYAML:
		if FormatForPath(path) != FormatYAML {
			return fmt.Errorf("output %s: yaml output needs a .yaml or .yml extension", path)
		}
	case FormatJSON, FormatJSONL, "":
		if FormatForPath(path) == FormatYAML {
			return fmt.Errorf("output %s: %s output cannot use a yaml extension", path, format)
		}
	case FormatChat:
		switch ext {
		case ".json", ".jsonl", ".yaml", ".yml":
			return fmt.Errorf("output %s: chat output is plain text, not %s", path, ext)
		}
	}
	return nil
}
