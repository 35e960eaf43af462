package sink

import (
	"bufio"
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSON writes newline-delimited JSON objects.
type JSON struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSON returns a JSON lines sink writing to w.
func NewJSON(w io.Writer) *JSON {
	bw := bufio.NewWriter(w)
	return &JSON{w: bw, enc: json.NewEncoder(bw)}
}

func (s *JSON) Write(rec *Record) error {
	return s.enc.Encode(rec)
}

// Close flushes buffered output.
func (s *JSON) Close() error {
	return s.w.Flush()
}

// YAML writes a stream of YAML documents, one per packet.
type YAML struct {
	enc     *yaml.Encoder
	written bool
}

// NewYAML returns a YAML sink writing to w.
func NewYAML(w io.Writer) *YAML {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAML{enc: enc}
}

func (s *YAML) Write(rec *Record) error {
	s.written = true
	return s.enc.Encode(rec)
}

// Close terminates the document stream. An empty stream writes nothing.
func (s *YAML) Close() error {
	if !s.written {
		return nil
	}
	return s.enc.Close()
}
