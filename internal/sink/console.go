package sink

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Console prints one block per packet in a human-readable layout.
type Console struct {
	w *bufio.Writer
}

// NewConsole returns a text sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: bufio.NewWriter(w)}
}

func (s *Console) Write(rec *Record) error {
	fmt.Fprintf(s.w, "#%d %s caplen=%d len=%d\n",
		rec.Seq, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.CaptureLen, rec.OrigLen)
	for _, l := range rec.Summary.Layers {
		fmt.Fprintf(s.w, "  %-8s offset=%-4d header=%-3d payload=%-5d",
			l.Protocol, l.Offset, l.HeaderLen, l.PayloadLen)
		if l.Padding > 0 {
			fmt.Fprintf(s.w, " padding=%d", l.Padding)
		}
		s.w.WriteByte('\n')
	}
	if len(rec.Summary.Layers) == 0 {
		s.w.WriteString("  (no valid layer)\n")
	}
	_, err := fmt.Fprintf(s.w, "  unparsed=%d\n", rec.Summary.Unparsed)
	return err
}

// Close flushes buffered output.
func (s *Console) Close() error {
	return s.w.Flush()
}
