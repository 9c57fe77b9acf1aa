package output

import (
	"encoding/json"
	"io"
)

// jsonWriter writes one JSON document per Write. With an empty indent the
// documents are single lines (JSONL).
type jsonWriter struct {
	enc *json.Encoder
}

func newJSONWriter(w io.Writer, indent string) *jsonWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return &jsonWriter{enc: enc}
}

func (w *jsonWriter) Write(data any) error {
	return w.enc.Encode(data)
}

func (w *jsonWriter) Close() error {
	return nil
}
