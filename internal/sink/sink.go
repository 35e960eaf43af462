// Package sink renders dissection records.
package sink

import (
	"errors"
	"fmt"
	"io"
	"time"

	"firestige.xyz/stackparse/pkg/dissect"
)

// ErrUnknownFormat is returned by New for unsupported output formats.
var ErrUnknownFormat = errors.New("sink: unknown format")

// Record is one dissected packet.
type Record struct {
	Seq        uint64          `json:"seq" yaml:"seq"`
	Timestamp  time.Time       `json:"timestamp" yaml:"timestamp"`
	CaptureLen int             `json:"capture_len" yaml:"capture_len"`
	OrigLen    int             `json:"orig_len" yaml:"orig_len"`
	Summary    dissect.Summary `json:"summary" yaml:"summary"`
}

// Sink consumes records. Write is never called concurrently.
type Sink interface {
	Write(rec *Record) error
	Close() error
}

// Formats lists the names accepted by New.
func Formats() []string { return []string{"text", "json", "yaml"} }

// New returns the sink for format writing to w.
func New(format string, w io.Writer) (Sink, error) {
	switch format {
	case "", "text":
		return NewConsole(w), nil
	case "json":
		return NewJSON(w), nil
	case "yaml":
		return NewYAML(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(*Record) error { return nil }
func (Discard) Close() error        { return nil }
