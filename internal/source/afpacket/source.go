//go:build linux

// Package afpacket captures live traffic through a TPACKET_V3 ring.
package afpacket

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/bpf"

	"firestige.xyz/stackparse/internal/config"
)

// Source reads packets from one interface.
type Source struct {
	handle *afpacket.TPacket

	device    string
	frameSize int
	blockSize int
	numBlocks int
	fanoutID  uint16
}

// Open creates the ring for cfg.Interface and attaches filter, if any.
func Open(cfg config.CaptureConfig, filter []bpf.RawInstruction) (*Source, error) {
	if cfg.Interface == "" {
		return nil, errors.New("afpacket: interface is required")
	}
	frameSize, blockSize, numBlocks, err := recomputeSize(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}
	s := &Source{
		device:    cfg.Interface,
		frameSize: frameSize,
		blockSize: blockSize,
		numBlocks: numBlocks,
		fanoutID:  cfg.FanoutID,
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(s.device),
		afpacket.OptFrameSize(s.frameSize),
		afpacket.OptBlockSize(s.blockSize),
		afpacket.OptNumBlocks(s.numBlocks),
		afpacket.OptPollTimeout(cfg.PollTimeout),
		afpacket.OptAddVLANHeader(true),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("afpacket: open %s: %w", s.device, err)
	}

	if s.fanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, s.fanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("afpacket: fanout %d: %w", s.fanoutID, err)
		}
	}

	if len(filter) > 0 {
		if err := tp.SetBPF(filter); err != nil {
			tp.Close()
			return nil, fmt.Errorf("afpacket: attach filter: %w", err)
		}
	}

	slog.Info("afpacket ring ready",
		"interface", s.device,
		"frame_size", s.frameSize,
		"block_size", s.blockSize,
		"num_blocks", s.numBlocks,
		"fanout_id", s.fanoutID)

	s.handle = tp
	return s, nil
}

// ReadPacketData copies the next packet out of the ring. It returns
// afpacket.ErrTimeout when the poll timeout expires with no traffic.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.handle.ReadPacketData()
}

// LinkType is always Ethernet for SocketRaw.
func (s *Source) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

// Drops returns the cumulative kernel drop count.
func (s *Source) Drops() (uint64, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return 0, err
	}
	return uint64(v3.Drops()), nil
}

// Interface returns the capture device name.
func (s *Source) Interface() string { return s.device }

// Close releases the ring.
func (s *Source) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}

// IsTimeout reports whether err is a poll timeout rather than a failure.
func IsTimeout(err error) bool {
	return errors.Is(err, afpacket.ErrTimeout)
}
