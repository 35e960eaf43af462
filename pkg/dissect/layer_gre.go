package dissect

const (
	greHeaderMinLen = 4

	greFlagChecksum = 0x8000
	greFlagRouting  = 0x4000
	greFlagKey      = 0x2000
	greFlagSequence = 0x1000
	greVersionMask  = 0x0007

	// GRE protocol types beyond the EtherTypes shared with Ethernet
	greTransparentEthernet = 0x6558
)

// greLayer is a version 0 GRE header (RFC 2784 with the RFC 2890 key and
// sequence extensions). Source routing (RFC 1701) and enhanced GRE
// (version 1, PPTP) are rejected.
type greLayer struct{}

func greHeaderLen(flags uint16) int {
	n := greHeaderMinLen
	if flags&greFlagChecksum != 0 {
		n += 4
	}
	if flags&greFlagKey != 0 {
		n += 4
	}
	if flags&greFlagSequence != 0 {
		n += 4
	}
	return n
}

func (greLayer) Validate(c *Cursor, _ Mode) bool {
	if c.Usable() < greHeaderMinLen {
		return false
	}
	flags, ok := peekUint16(c, 0)
	if !ok || flags&greVersionMask != 0 || flags&greFlagRouting != 0 {
		return false
	}
	return greHeaderLen(flags) <= c.Usable()
}

func (greLayer) HeaderLen(c *Cursor) int {
	return greHeaderLen(mustUint16(c, 0))
}

func (l greLayer) PayloadLen(c *Cursor, _ Mode) int {
	return c.Usable() - l.HeaderLen(c)
}

func (l greLayer) Next(c *Cursor) Protocol {
	hdr := l.HeaderLen(c)
	t := mustUint16(c, 2)
	mustAdvance(c, hdr)
	if t == greTransparentEthernet {
		return Ethernet
	}
	return etherTypeProtocol(t)
}
