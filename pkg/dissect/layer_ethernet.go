package dissect

const (
	ethernetHeaderLen = 14
	vlanHeaderLen     = 4

	// EtherType values
	etherTypeIPv4       = 0x0800
	etherTypeVLAN       = 0x8100
	etherTypeQinQ       = 0x88A8
	etherTypeQinQLegacy = 0x9100

	// EtherType values up to this one are IEEE 802.3 length fields.
	maxEthernetLength = 1500
)

// ethernetLayer is an Ethernet II or IEEE 802.3 header. An 802.3 frame
// carries its payload length in the type field, which lets the layer
// declare minimum-frame padding; its LLC payload is not dissected.
type ethernetLayer struct{}

func (ethernetLayer) Validate(c *Cursor, m Mode) bool {
	if c.Usable() < ethernetHeaderLen {
		return false
	}
	t, ok := peekUint16(c, 12)
	if !ok {
		return false
	}
	if t <= maxEthernetLength {
		return fits(c, ethernetHeaderLen, int(t), m)
	}
	return true
}

func (ethernetLayer) HeaderLen(*Cursor) int { return ethernetHeaderLen }

func (ethernetLayer) PayloadLen(c *Cursor, m Mode) int {
	if t := mustUint16(c, 12); t <= maxEthernetLength {
		return payloadFor(c, ethernetHeaderLen, int(t), m)
	}
	return c.Usable() - ethernetHeaderLen
}

func (ethernetLayer) Next(c *Cursor) Protocol {
	t := mustUint16(c, 12)
	mustAdvance(c, ethernetHeaderLen)
	if t <= maxEthernetLength {
		return End
	}
	return etherTypeProtocol(t)
}

// vlanLayer is one IEEE 802.1Q / 802.1ad tag: TCI followed by the
// encapsulated EtherType. Stacked tags (QinQ) are consecutive VLAN layers.
type vlanLayer struct{}

func (vlanLayer) Validate(c *Cursor, _ Mode) bool {
	return c.Usable() >= vlanHeaderLen
}

func (vlanLayer) HeaderLen(*Cursor) int { return vlanHeaderLen }

func (vlanLayer) PayloadLen(c *Cursor, _ Mode) int {
	return c.Usable() - vlanHeaderLen
}

func (vlanLayer) Next(c *Cursor) Protocol {
	t := mustUint16(c, 2)
	mustAdvance(c, vlanHeaderLen)
	return etherTypeProtocol(t)
}
