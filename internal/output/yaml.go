package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// yamlWriter writes YAML documents separated by "---".
type yamlWriter struct {
	enc *yaml.Encoder
}

func newYAMLWriter(w io.Writer) *yamlWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &yamlWriter{enc: enc}
}

func (w *yamlWriter) Write(data any) error {
	return w.enc.Encode(data)
}

func (w *yamlWriter) Close() error {
	return w.enc.Close()
}
