// Package filter compiles small tcpdump-style expressions into classic BPF.
//
// Supported terms, joined by "and": ip, vlan, udp, sctp, gre,
// src ADDR, dst ADDR, host ADDR, net CIDR. Addresses are IPv4 only,
// matching the protocols the dissector understands.
package filter

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/net/bpf"

	"firestige.xyz/stackparse/pkg/dissect"
)

var (
	// ErrSyntax is returned for expressions the compiler does not understand.
	ErrSyntax = errors.New("filter: syntax error")
	// ErrLinkType is returned when the expression cannot apply to the link layer.
	ErrLinkType = errors.New("filter: unsupported link type")
)

const (
	acceptLen = 262144

	etherTypeIPv4       = 0x0800
	etherTypeVLAN       = 0x8100
	etherTypeQinQ       = 0x88a8
	etherTypeQinQLegacy = 0x9100
)

var ipProtocols = map[string]uint32{
	"udp":  17,
	"gre":  47,
	"sctp": 132,
}

// Filter is a compiled expression. The zero-instruction filter accepts all.
type Filter struct {
	expr string
	raw  []bpf.RawInstruction
	vm   *bpf.VM
	vlan bool
}

// Compile translates expr for packets whose first layer is link.
// Only Ethernet and bare IPv4 framing are supported.
func Compile(expr string, link dissect.Protocol) (*Filter, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	if expr == "" {
		return &Filter{}, nil
	}

	terms, err := parseTerms(expr)
	if err != nil {
		return nil, err
	}

	prog, err := assemble(terms, link)
	if err != nil {
		return nil, err
	}

	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, fmt.Errorf("filter: assemble %q: %w", expr, err)
	}
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("filter: load %q: %w", expr, err)
	}
	f := &Filter{expr: expr, raw: raw, vm: vm}
	for _, t := range terms {
		f.vlan = f.vlan || t.kind == termVLAN
	}
	return f, nil
}

// Validate reports whether expr compiles for Ethernet framing.
func Validate(expr string) error {
	_, err := Compile(expr, dissect.Ethernet)
	return err
}

// Match reports whether the packet passes the filter.
func (f *Filter) Match(pkt []byte) bool {
	if f == nil || f.vm == nil {
		return true
	}
	n, err := f.vm.Run(pkt)
	return err == nil && n > 0
}

// RawInstructions returns the program for kernel attachment. It is nil
// for the accept-all filter.
func (f *Filter) RawInstructions() []bpf.RawInstruction {
	if f == nil {
		return nil
	}
	return f.raw
}

// UsesVLAN reports whether the program reads an 802.1Q tag from the
// frame. Such programs cannot run in the kernel on sockets where the NIC
// strips tags into packet metadata.
func (f *Filter) UsesVLAN() bool { return f != nil && f.vlan }

// Empty reports whether the filter accepts every packet.
func (f *Filter) Empty() bool { return f == nil || f.vm == nil }

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

type termKind int

const (
	termIP termKind = iota
	termVLAN
	termProto
	termSrc
	termDst
	termHost
	termNet
)

type term struct {
	kind   termKind
	proto  uint32
	addr   uint32
	mask   uint32
	source string
}

func parseTerms(expr string) ([]term, error) {
	fields := strings.Fields(expr)
	var terms []term
	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		switch tok {
		case "and", "&&":
			continue
		case "or", "||", "not", "!":
			return nil, fmt.Errorf("%w: operator %q is not supported", ErrSyntax, tok)
		case "ip":
			terms = append(terms, term{kind: termIP, source: tok})
		case "vlan":
			terms = append(terms, term{kind: termVLAN, source: tok})
		case "udp", "gre", "sctp":
			terms = append(terms, term{kind: termProto, proto: ipProtocols[tok], source: tok})
		case "src", "dst", "host", "net":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%w: %q needs an address", ErrSyntax, tok)
			}
			i++
			t, err := addressTerm(tok, fields[i])
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		default:
			return nil, fmt.Errorf("%w: unknown term %q", ErrSyntax, tok)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms in %q", ErrSyntax, expr)
	}
	return terms, nil
}

func addressTerm(kw, arg string) (term, error) {
	if kw == "net" {
		prefix, err := netip.ParsePrefix(arg)
		if err != nil || !prefix.Addr().Is4() {
			return term{}, fmt.Errorf("%w: net %q is not an IPv4 prefix", ErrSyntax, arg)
		}
		prefix = prefix.Masked()
		mask := ^uint32(0)
		if prefix.Bits() < 32 {
			mask = ^(^uint32(0) >> prefix.Bits())
		}
		return term{kind: termNet, addr: ipv4Word(prefix.Addr()), mask: mask, source: kw + " " + arg}, nil
	}

	addr, err := netip.ParseAddr(arg)
	if err != nil || !addr.Is4() {
		return term{}, fmt.Errorf("%w: %s %q is not an IPv4 address", ErrSyntax, kw, arg)
	}
	kinds := map[string]termKind{"src": termSrc, "dst": termDst, "host": termHost}
	return term{kind: kinds[kw], addr: ipv4Word(addr), source: kw + " " + arg}, nil
}

func ipv4Word(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
