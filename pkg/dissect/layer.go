package dissect

import "fmt"

// Layer is the capability every protocol variant implements. All four
// operations act on the cursor positioned at the start of the layer's
// header.
//
// Validate must report false, never panic, when the usable bytes cannot
// hold the header or when self-describing length fields disagree with
// them. HeaderLen and PayloadLen are only called after Validate returned
// true and must satisfy HeaderLen+PayloadLen <= Usable. Next consumes the
// header with exactly one Advance(HeaderLen) and returns whatever follows,
// or End when the following bytes are not a recognised protocol.
type Layer interface {
	Validate(c *Cursor, m Mode) bool
	HeaderLen(c *Cursor) int
	PayloadLen(c *Cursor, m Mode) int
	Next(c *Cursor) Protocol
}

// layerTable dispatches on Protocol. Every constant below numProtocols
// has a row; there is no fallback implementation.
var layerTable = [numProtocols]Layer{
	End:      endLayer{},
	Ethernet: ethernetLayer{},
	VLAN:     vlanLayer{},
	IPv4:     ipv4Layer{},
	GRE:      greLayer{},
	UDP:      udpLayer{},
	SCTP:     sctpLayer{},
}

// LayerFor returns the Layer implementation for p. Identities outside the
// closed set map to the terminal End layer.
func LayerFor(p Protocol) Layer {
	if p < numProtocols {
		return layerTable[p]
	}
	return endLayer{}
}

// etherTypeProtocol maps an EtherType (or GRE protocol type) to the
// protocol that follows it.
func etherTypeProtocol(t uint16) Protocol {
	switch t {
	case etherTypeIPv4:
		return IPv4
	case etherTypeVLAN, etherTypeQinQ, etherTypeQinQLegacy:
		return VLAN
	default:
		return End
	}
}

// payloadFor turns a declared payload length into the one reported for the
// layer. In ModeFull Validate has already proved it fits; in ModeHeaders it
// is clamped to the usable bytes after the header.
func payloadFor(c *Cursor, hdr, declared int, m Mode) int {
	if m == ModeHeaders {
		if room := c.Usable() - hdr; declared > room {
			return max(room, 0)
		}
	}
	return declared
}

// fits reports whether a declared payload is acceptable under m.
func fits(c *Cursor, hdr, declared int, m Mode) bool {
	if declared < 0 {
		return false
	}
	return m == ModeHeaders || hdr+declared <= c.Usable()
}

func peekUint8(c *Cursor, off int) (uint8, bool) {
	v, err := c.Peek(off, 1)
	if err != nil {
		return 0, false
	}
	b, err := v.Uint8(0)
	return b, err == nil
}

func peekUint16(c *Cursor, off int) (uint16, bool) {
	v, err := c.Peek(off, 2)
	if err != nil {
		return 0, false
	}
	n, err := v.Uint16(0)
	return n, err == nil
}

// mustUint8 and mustUint16 read fields Validate has already proved present.
func mustUint8(c *Cursor, off int) uint8 {
	b, ok := peekUint8(c, off)
	if !ok {
		panic(fmt.Errorf("%w: read uint8 at +%d with %d available", ErrContractViolation, off, c.Available()))
	}
	return b
}

func mustUint16(c *Cursor, off int) uint16 {
	n, ok := peekUint16(c, off)
	if !ok {
		panic(fmt.Errorf("%w: read uint16 at +%d with %d available", ErrContractViolation, off, c.Available()))
	}
	return n
}

func mustAdvance(c *Cursor, n int) {
	if err := c.Advance(n); err != nil {
		panic(fmt.Errorf("%w: %v", ErrContractViolation, err))
	}
}

// endLayer terminates every stack.
type endLayer struct{}

func (endLayer) Validate(*Cursor, Mode) bool  { return false }
func (endLayer) HeaderLen(*Cursor) int        { return 0 }
func (endLayer) PayloadLen(*Cursor, Mode) int { return 0 }
func (endLayer) Next(*Cursor) Protocol        { return End }
