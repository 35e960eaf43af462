package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"
	"golang.org/x/net/bpf"

	"firestige.xyz/stackparse/internal/config"
	"firestige.xyz/stackparse/internal/filter"
	"firestige.xyz/stackparse/internal/metrics"
	"firestige.xyz/stackparse/internal/pipeline"
	"firestige.xyz/stackparse/internal/sink"
	"firestige.xyz/stackparse/internal/source/afpacket"
)

var (
	captureIface string
	captureQuiet bool
	captureOpts  dissectOptions
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Dissect live traffic from a network interface (Linux)",
	Long: `Capture from an interface through an AF_PACKET TPACKET_V3 ring and dissect
every packet. The filter is compiled to classic BPF and attached to the socket;
filters naming vlan run in userspace because the NIC may strip the tag before
the socket filter sees the frame.
Metrics are served when metrics.enabled is set in the configuration.

Stops on SIGINT or SIGTERM.

Examples:
  stackparse capture -i eth0 --filter gre
  stackparse capture -i eth0 -q -c /etc/stackparse/config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		captureOpts.captureFlags(cmd)
		return runCapture(cmd.Context(), cfg, captureIface, &captureOpts, cmd.OutOrStdout())
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureIface, "interface", "i", "", "interface to capture on (overrides capture.interface)")
	captureCmd.Flags().BoolVarP(&captureQuiet, "quiet", "q", false, "do not print records; metrics only")
	addDissectFlags(captureCmd, &captureOpts)
	addFormatFlag(captureCmd, &captureOpts)
}

func runCapture(ctx context.Context, c *config.GlobalConfig, iface string, o *dissectOptions, w io.Writer) error {
	cc := c.Capture
	if iface != "" {
		cc.Interface = iface
	}

	// Live sockets are always Ethernet framed; resolve before opening
	// so the filter can be attached in the kernel.
	first, mode, f, err := o.resolve(c.Dissect, layers.LinkTypeEthernet)
	if err != nil {
		return err
	}

	kernel, userspace := splitFilter(f)
	src, err := afpacket.Open(cc, kernel)
	if err != nil {
		return err
	}
	defer src.Close()

	var out sink.Sink = sink.Discard{}
	if !captureQuiet {
		if out, err = sink.New(o.format, w); err != nil {
			return err
		}
	}

	if c.Metrics.Enabled {
		srv := metrics.NewServer(c.Metrics.Listen, c.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				slog.Error("metrics server stop failed", "error", err)
			}
		}()
	}

	p := pipeline.New(pipeline.Config{
		Name:      src.Interface(),
		Source:    src,
		First:     first,
		Mode:      mode,
		Filter:    userspace,
		Sink:      out,
		Limit:     o.count,
		Retryable: afpacket.IsTimeout,
	})
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("capture %s: %w", cc.Interface, err)
	}
	return nil
}

// splitFilter decides where f runs. VLAN terms are matched in userspace,
// after the ring has restored the tag into the frame.
func splitFilter(f *filter.Filter) ([]bpf.RawInstruction, *filter.Filter) {
	if f.UsesVLAN() {
		return nil, f
	}
	return f.RawInstructions(), nil
}
