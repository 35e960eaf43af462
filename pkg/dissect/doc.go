// Package dissect walks the layers of a packet held in one contiguous
// buffer without copying it.
//
// A Parser starts at a caller-chosen first protocol (usually Ethernet) and
// moves inward one layer per Next call. At every layer it exposes three
// windows onto the caller's buffer: Header, Payload (which immediately
// follows the header) and Packet (everything from the header to the end of
// the buffer). Truncated, padded or garbage input never causes a read past
// the buffer: the stack simply ends, which callers observe as End.
//
//	p := dissect.NewParser(dissect.NewView(frame))
//	for proto := p.Parse(dissect.Ethernet); proto != dissect.End; proto = p.Next() {
//		fmt.Println(proto, p.Header().Len(), p.Payload().Len())
//	}
//
// Supported layers are Ethernet, VLAN (802.1Q/802.1ad), IPv4, GRE, UDP and
// SCTP. Each implements the four-operation Layer contract; the parser
// dispatches through a fixed table indexed by Protocol.
package dissect
