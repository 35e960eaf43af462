package dissect

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

var (
	testSrcMAC = net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	testDstMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testSrcIP  = net.IP{192, 168, 1, 1}
	testDstIP  = net.IP{192, 168, 1, 2}
)

// serialize builds a frame with gopacket. Ethernet pads frames shorter
// than 60 bytes, which gives the padding paths real input.
func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...)
	require.NoError(t, err)
	return buf.Bytes()
}

func ethernet(next layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: testSrcMAC, DstMAC: testDstMAC, EthernetType: next}
}

func dot1q(id uint16, next layers.EthernetType) *layers.Dot1Q {
	return &layers.Dot1Q{VLANIdentifier: id, Type: next}
}

func ipv4(next layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: next, SrcIP: testSrcIP, DstIP: testDstIP}
}

func udp() *layers.UDP {
	return &layers.UDP{SrcPort: 5000, DstPort: 5001}
}

func payload(n int) gopacket.Payload {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return gopacket.Payload(b)
}

// makeSimpleUDPPacket is the 64-byte Ethernet/IPv4/UDP frame with a
// 22-byte UDP payload, built by hand.
func makeSimpleUDPPacket() []byte {
	packet := make([]byte, 64)

	// Ethernet header (14 bytes)
	copy(packet[0:6], testDstMAC)
	copy(packet[6:12], testSrcMAC)
	packet[12], packet[13] = 0x08, 0x00 // EtherType: IPv4

	// IPv4 header (20 bytes)
	packet[14] = 0x45                   // Version 4, IHL 5
	packet[16], packet[17] = 0x00, 0x32 // Total Length: 50
	packet[18], packet[19] = 0x12, 0x34 // Identification
	packet[22] = 0x40                   // TTL: 64
	packet[23] = 0x11                   // Protocol: UDP
	copy(packet[26:30], testSrcIP)
	copy(packet[30:34], testDstIP)

	// UDP header (8 bytes)
	packet[34], packet[35] = 0x13, 0x88 // Src Port: 5000
	packet[36], packet[37] = 0x13, 0x89 // Dst Port: 5001
	packet[38], packet[39] = 0x00, 0x1E // Length: 30

	for i := 42; i < 64; i++ {
		packet[i] = byte(i)
	}
	return packet
}
