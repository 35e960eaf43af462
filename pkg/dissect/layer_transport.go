package dissect

const (
	udpHeaderLen  = 8
	sctpHeaderLen = 12

	sctpChunkHeaderLen = 4
)

// udpLayer is a UDP header. The length field covers header and payload.
type udpLayer struct{}

func (udpLayer) Validate(c *Cursor, m Mode) bool {
	if c.Usable() < udpHeaderLen {
		return false
	}
	length, ok := peekUint16(c, 4)
	if !ok || length < udpHeaderLen {
		return false
	}
	return fits(c, udpHeaderLen, int(length)-udpHeaderLen, m)
}

func (udpLayer) HeaderLen(*Cursor) int { return udpHeaderLen }

func (udpLayer) PayloadLen(c *Cursor, m Mode) int {
	return payloadFor(c, udpHeaderLen, int(mustUint16(c, 4))-udpHeaderLen, m)
}

func (udpLayer) Next(c *Cursor) Protocol {
	mustAdvance(c, udpHeaderLen)
	return End
}

// sctpLayer is the SCTP common header. Its payload is the chunk list,
// whose self-described lengths must stay inside the usable bytes.
type sctpLayer struct{}

func (sctpLayer) Validate(c *Cursor, m Mode) bool {
	usable := c.Usable()
	if usable < sctpHeaderLen {
		return false
	}
	for off := sctpHeaderLen; off < usable; {
		if usable-off < sctpChunkHeaderLen {
			// A truncated chunk header is only acceptable when the payload
			// was cut by the capture.
			return m == ModeHeaders
		}
		length, ok := peekUint16(c, off+2)
		if !ok || length < sctpChunkHeaderLen {
			return false
		}
		if int(length) > usable-off {
			return m == ModeHeaders
		}
		off += (int(length) + 3) &^ 3
	}
	return true
}

func (sctpLayer) HeaderLen(*Cursor) int { return sctpHeaderLen }

func (sctpLayer) PayloadLen(c *Cursor, _ Mode) int {
	return c.Usable() - sctpHeaderLen
}

func (sctpLayer) Next(c *Cursor) Protocol {
	mustAdvance(c, sctpHeaderLen)
	return End
}
