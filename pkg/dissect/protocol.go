package dissect

import (
	"fmt"
	"strings"
)

// Protocol identifies one layer variant. The set is closed; End is both
// the state of a parser that has not parsed anything yet and the state of
// one whose stack is exhausted.
type Protocol uint8

const (
	End Protocol = iota
	Ethernet
	VLAN
	IPv4
	GRE
	UDP
	SCTP

	numProtocols
)

var protocolNames = [numProtocols]string{
	End:      "end",
	Ethernet: "ethernet",
	VLAN:     "vlan",
	IPv4:     "ipv4",
	GRE:      "gre",
	UDP:      "udp",
	SCTP:     "sctp",
}

// Protocols returns every protocol identity, End first.
func Protocols() []Protocol {
	out := make([]Protocol, 0, numProtocols)
	for p := End; p < numProtocols; p++ {
		out = append(out, p)
	}
	return out
}

// String returns the lower-case protocol name.
func (p Protocol) String() string {
	if p < numProtocols {
		return protocolNames[p]
	}
	return fmt.Sprintf("protocol(%d)", uint8(p))
}

// Valid reports whether p is a member of the closed set.
func (p Protocol) Valid() bool { return p < numProtocols }

// ParseProtocol resolves a protocol name, case-insensitively. "eth",
// "dot1q" and "ip" are accepted as aliases.
func ParseProtocol(s string) (Protocol, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "eth":
		return Ethernet, nil
	case "dot1q", "802.1q":
		return VLAN, nil
	case "ip", "ip4":
		return IPv4, nil
	}
	for p, n := range protocolNames {
		if n == name {
			return Protocol(p), nil
		}
	}
	return End, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// Set implements pflag.Value.
func (p *Protocol) Set(s string) error {
	v, err := ParseProtocol(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *Protocol) Type() string { return "protocol" }

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Protocol) UnmarshalText(text []byte) error {
	return p.Set(string(text))
}
