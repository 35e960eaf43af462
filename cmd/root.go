// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/stackparse/internal/config"
	"firestige.xyz/stackparse/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// cfg is loaded once by the root pre-run hook.
	cfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stackparse",
	Short: "stackparse - zero-copy layer-by-layer packet dissector",
	Long: `stackparse walks the protocol stack of captured packets one layer at a time,
reporting the offset, header length, payload length and padding of every layer.

Supported layers: Ethernet (DIX and 802.3), 802.1Q/802.1ad VLAN, IPv4, GRE, UDP, SCTP.

Packets come from pcap/pcapng files or from live AF_PACKET capture on Linux,
optionally pre-filtered with a classic BPF expression.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug/info/warn/error)")

	rootCmd.AddCommand(dissectCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig reads the global configuration and initializes logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := log.Init(c.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	cfg = c
	return nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
