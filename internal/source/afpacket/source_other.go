//go:build !linux

// Package afpacket captures live traffic through a TPACKET_V3 ring.
package afpacket

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/bpf"

	"firestige.xyz/stackparse/internal/config"
)

// ErrUnsupported is returned on platforms without AF_PACKET.
var ErrUnsupported = errors.New("afpacket: live capture requires linux")

// Source is unavailable on this platform.
type Source struct{}

// Open always fails with ErrUnsupported.
func Open(config.CaptureConfig, []bpf.RawInstruction) (*Source, error) {
	return nil, ErrUnsupported
}

func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, ErrUnsupported
}

func (s *Source) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *Source) Drops() (uint64, error) { return 0, ErrUnsupported }

func (s *Source) Interface() string { return "" }

func (s *Source) Close() error { return nil }

// IsTimeout reports whether err is a poll timeout rather than a failure.
func IsTimeout(error) bool { return false }
