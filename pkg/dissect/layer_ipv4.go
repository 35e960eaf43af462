package dissect

const (
	ipv4HeaderMinLen = 20

	// IP protocol numbers
	protocolIPIP = 4
	protocolUDP  = 17
	protocolGRE  = 47
	protocolSCTP = 132

	ipv4FlagMoreFragments = 0x2000
	ipv4FragmentOffset    = 0x1FFF
)

// ipv4Layer is an IPv4 header with options. The payload is bounded by the
// total length field, so any bytes past it become padding. Fragments end
// the stack: only the first one starts with a transport header and even
// that one is incomplete.
type ipv4Layer struct{}

func (ipv4Layer) Validate(c *Cursor, m Mode) bool {
	if c.Usable() < ipv4HeaderMinLen {
		return false
	}
	vihl, ok := peekUint8(c, 0)
	if !ok || vihl>>4 != 4 {
		return false
	}
	hdr := int(vihl&0x0F) * 4
	if hdr < ipv4HeaderMinLen || hdr > c.Usable() {
		return false
	}
	total, ok := peekUint16(c, 2)
	if !ok || int(total) < hdr {
		return false
	}
	return fits(c, hdr, int(total)-hdr, m)
}

func (ipv4Layer) HeaderLen(c *Cursor) int {
	return int(mustUint8(c, 0)&0x0F) * 4
}

func (l ipv4Layer) PayloadLen(c *Cursor, m Mode) int {
	hdr := l.HeaderLen(c)
	return payloadFor(c, hdr, int(mustUint16(c, 2))-hdr, m)
}

func (l ipv4Layer) Next(c *Cursor) Protocol {
	hdr := l.HeaderLen(c)
	frag := mustUint16(c, 6)
	proto := mustUint8(c, 9)
	mustAdvance(c, hdr)
	if frag&(ipv4FlagMoreFragments|ipv4FragmentOffset) != 0 {
		return End
	}
	switch proto {
	case protocolUDP:
		return UDP
	case protocolGRE:
		return GRE
	case protocolSCTP:
		return SCTP
	case protocolIPIP:
		return IPv4
	default:
		return End
	}
}
