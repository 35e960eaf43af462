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
	statsFile string
	statsOpts dissectOptions
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize layer counts and stop points of a capture file",
	Long: `Dissect every packet of a capture file and print how often each protocol
appeared and where dissection stopped.

Examples:
  stackparse stats -r trace.pcap
  stackparse stats -r trace.pcap --filter vlan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statsOpts.captureFlags(cmd)
		return runStats(cmd.Context(), cfg.Dissect, statsFile, &statsOpts, cmd.OutOrStdout())
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsFile, "read", "r", "", "capture file to read (required)")
	_ = statsCmd.MarkFlagRequired("read")
	addDissectFlags(statsCmd, &statsOpts)
}

func runStats(ctx context.Context, dc config.DissectConfig, path string, o *dissectOptions, w io.Writer) error {
	src, err := file.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	first, mode, f, err := o.resolve(dc, src.LinkType())
	if err != nil {
		return err
	}

	agg := sink.NewStats()
	p := pipeline.New(pipeline.Config{
		Name:   "file",
		Source: src,
		First:  first,
		Mode:   mode,
		Filter: f,
		Sink:   agg,
		Limit:  o.count,
	})
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("stats %s: %w", path, err)
	}

	if err := agg.Report(w); err != nil {
		return err
	}
	if st := p.Stats(); st.Filtered > 0 {
		fmt.Fprintf(w, "\nfiltered out %d of %d packets\n", st.Filtered, st.Received)
	}
	return nil
}
