package cmd

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/stackparse/internal/config"
	"firestige.xyz/stackparse/internal/filter"
	"firestige.xyz/stackparse/internal/source"
	"firestige.xyz/stackparse/pkg/dissect"
)

// dissectOptions are the flags shared by every command that dissects.
type dissectOptions struct {
	first       dissect.Protocol
	firstSet    bool
	headersOnly bool
	filter      string
	filterSet   bool
	format      string
	count       uint64
}

func addDissectFlags(cmd *cobra.Command, o *dissectOptions) {
	cmd.Flags().Var(&o.first, "first", "first layer (ethernet/vlan/ipv4/gre/udp/sctp) (default: from link type)")
	// The zero Protocol prints as "end"; hide it from the usage text.
	cmd.Flags().Lookup("first").DefValue = ""
	cmd.Flags().BoolVar(&o.headersOnly, "headers-only", false, "accept truncated captures whose headers are complete")
	cmd.Flags().StringVar(&o.filter, "filter", "", `BPF pre-filter, e.g. "udp and host 10.0.0.1"`)
	cmd.Flags().Uint64VarP(&o.count, "count", "n", 0, "stop after n dissected packets (0 = all)")
}

func addFormatFlag(cmd *cobra.Command, o *dissectOptions) {
	cmd.Flags().StringVarP(&o.format, "output", "o", "text", "output format (text/json/yaml)")
}

// captureFlags records which optional flags were set explicitly.
func (o *dissectOptions) captureFlags(cmd *cobra.Command) {
	o.firstSet = cmd.Flags().Changed("first")
	o.filterSet = cmd.Flags().Changed("filter")
}

// resolve merges flags over configuration. An explicit --first wins,
// then the link type of the source, then dissect.first from config.
func (o *dissectOptions) resolve(dc config.DissectConfig, lt layers.LinkType) (dissect.Protocol, dissect.Mode, *filter.Filter, error) {
	link, linkErr := source.FirstProtocol(lt)
	first := dc.First
	switch {
	case o.firstSet:
		first = o.first
	case linkErr == nil:
		first = link
	}
	if first == dissect.End {
		return dissect.End, 0, nil, fmt.Errorf("first layer must not be %s", dissect.End)
	}

	mode := dc.Mode
	if o.headersOnly {
		mode = dissect.ModeHeaders
	}

	expr := dc.Filter
	if o.filterSet {
		expr = o.filter
	}
	// Filter offsets follow the capture framing, not the first layer.
	if linkErr != nil {
		link = first
	}
	f, err := filter.Compile(expr, link)
	if err != nil {
		return dissect.End, 0, nil, err
	}
	return first, mode, f, nil
}
