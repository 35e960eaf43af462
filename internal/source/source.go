// Package source provides packet readers feeding the dissection pipeline.
package source

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/stackparse/pkg/dissect"
)

// ErrUnsupportedLinkType is returned for link types with no matching
// first layer.
var ErrUnsupportedLinkType = errors.New("source: unsupported link type")

// Source yields raw packets. ReadPacketData returns io.EOF once a finite
// source is exhausted.
type Source interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
	Close() error
}

// FirstProtocol maps a capture link type to the layer dissection starts at.
func FirstProtocol(lt layers.LinkType) (dissect.Protocol, error) {
	switch lt {
	case layers.LinkTypeEthernet:
		return dissect.Ethernet, nil
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return dissect.IPv4, nil
	default:
		return dissect.End, fmt.Errorf("%w: %s", ErrUnsupportedLinkType, lt)
	}
}
