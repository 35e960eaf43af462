package sink

import (
	"fmt"
	"io"
	"text/tabwriter"

	"firestige.xyz/stackparse/pkg/dissect"
)

// Stats aggregates records instead of printing them.
type Stats struct {
	Packets  uint64
	Bytes    uint64
	Unparsed uint64
	Layers   map[dissect.Protocol]uint64
	// Ends counts packets by innermost valid layer, End for none.
	Ends     map[dissect.Protocol]uint64
	MaxDepth int
}

// NewStats returns an empty aggregate.
func NewStats() *Stats {
	return &Stats{
		Layers: make(map[dissect.Protocol]uint64),
		Ends:   make(map[dissect.Protocol]uint64),
	}
}

func (s *Stats) Write(rec *Record) error {
	s.Packets++
	s.Bytes += uint64(rec.Summary.Length)
	s.Unparsed += uint64(rec.Summary.Unparsed)
	for _, l := range rec.Summary.Layers {
		s.Layers[l.Protocol]++
	}
	s.Ends[rec.Summary.Last()]++
	if d := rec.Summary.Depth(); d > s.MaxDepth {
		s.MaxDepth = d
	}
	return nil
}

func (s *Stats) Close() error { return nil }

// Report prints the aggregate as a table.
func (s *Stats) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "packets\t%d\n", s.Packets)
	fmt.Fprintf(tw, "bytes\t%d\n", s.Bytes)
	fmt.Fprintf(tw, "unparsed bytes\t%d\n", s.Unparsed)
	fmt.Fprintf(tw, "max depth\t%d\n", s.MaxDepth)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PROTOCOL\tLAYERS\tSTOPPED HERE")
	for _, p := range dissect.Protocols() {
		if s.Layers[p] == 0 && s.Ends[p] == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", p, s.Layers[p], s.Ends[p])
	}
	return tw.Flush()
}
