package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/stackparse/internal/config"
	"firestige.xyz/stackparse/internal/pipeline"
	"firestige.xyz/stackparse/internal/sink"
	"firestige.xyz/stackparse/internal/source/file"
)

var (
	dissectFile string
	dissectOpts dissectOptions
)

var dissectCmd = &cobra.Command{
	Use:   "dissect",
	Short: "Print the layer stack of every packet in a capture file",
	Long: `Read a pcap or pcapng file and print, for every packet, each valid layer with
its offset, header length, payload length and padding.

Examples:
  stackparse dissect -r trace.pcap
  stackparse dissect -r trace.pcapng --filter "udp and host 10.0.0.1" -o json
  stackparse dissect -r raw-ip.pcap --first ipv4 --headers-only -n 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dissectOpts.captureFlags(cmd)
		return runDissect(cmd.Context(), cfg.Dissect, dissectFile, &dissectOpts, cmd.OutOrStdout())
	},
}

func init() {
	dissectCmd.Flags().StringVarP(&dissectFile, "read", "r", "", "capture file to read (required)")
	_ = dissectCmd.MarkFlagRequired("read")
	addDissectFlags(dissectCmd, &dissectOpts)
	addFormatFlag(dissectCmd, &dissectOpts)
}

func runDissect(ctx context.Context, dc config.DissectConfig, path string, o *dissectOptions, w io.Writer) error {
	src, err := file.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	first, mode, f, err := o.resolve(dc, src.LinkType())
	if err != nil {
		return err
	}
	out, err := sink.New(o.format, w)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		Name:   "file",
		Source: src,
		First:  first,
		Mode:   mode,
		Filter: f,
		Sink:   out,
		Limit:  o.count,
	})
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("dissect %s: %w", path, err)
	}
	return nil
}
