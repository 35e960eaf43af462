package filter

import (
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/stackparse/pkg/dissect"
)

// program accumulates instructions whose failed checks jump to a shared
// reject return appended by finish.
type program struct {
	insns   []bpf.Instruction
	rejects []int
}

func (p *program) load(off uint32, size int) {
	p.insns = append(p.insns, bpf.LoadAbsolute{Off: off, Size: size})
}

// require rejects the packet unless A == val.
func (p *program) require(val uint32) {
	p.rejects = append(p.rejects, len(p.insns))
	p.insns = append(p.insns, bpf.JumpIf{Cond: bpf.JumpEqual, Val: val})
}

// requireAny rejects the packet unless A equals one of vals.
func (p *program) requireAny(vals ...uint32) {
	last := len(vals) - 1
	for i, v := range vals[:last] {
		p.insns = append(p.insns, bpf.JumpIf{Cond: bpf.JumpEqual, Val: v, SkipTrue: uint8(last - i)})
	}
	p.require(vals[last])
}

func (p *program) finish() ([]bpf.Instruction, error) {
	accept := len(p.insns)
	p.insns = append(p.insns, bpf.RetConstant{Val: acceptLen}, bpf.RetConstant{Val: 0})
	reject := accept + 1
	for _, i := range p.rejects {
		skip := reject - i - 1
		if skip > 0xff {
			return nil, fmt.Errorf("%w: expression too long", ErrSyntax)
		}
		j := p.insns[i].(bpf.JumpIf)
		j.SkipFalse = uint8(skip)
		p.insns[i] = j
	}
	return p.insns, nil
}

func assemble(terms []term, link dissect.Protocol) ([]bpf.Instruction, error) {
	var (
		p       program
		ipOff   uint32
		needsIP bool
		vlan    bool
	)
	for _, t := range terms {
		if t.kind == termVLAN {
			vlan = true
		} else {
			needsIP = true
		}
	}

	switch link {
	case dissect.Ethernet:
		typeOff := uint32(12)
		ipOff = 14
		if vlan {
			p.load(typeOff, 2)
			p.requireAny(etherTypeVLAN, etherTypeQinQ, etherTypeQinQLegacy)
			typeOff, ipOff = 16, 18
		}
		if needsIP {
			p.load(typeOff, 2)
			p.require(etherTypeIPv4)
		}
	case dissect.IPv4:
		if vlan {
			return nil, fmt.Errorf("%w: vlan on %s framing", ErrLinkType, link)
		}
		ipOff = 0
		p.load(0, 1)
		p.insns = append(p.insns, bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: 0xf0})
		p.require(0x40)
	default:
		return nil, fmt.Errorf("%w: %s", ErrLinkType, link)
	}

	for _, t := range terms {
		switch t.kind {
		case termIP, termVLAN:
		case termProto:
			p.load(ipOff+9, 1)
			p.require(t.proto)
		case termSrc:
			p.load(ipOff+12, 4)
			p.require(t.addr)
		case termDst:
			p.load(ipOff+16, 4)
			p.require(t.addr)
		case termHost:
			// Source match skips the destination check.
			p.load(ipOff+12, 4)
			p.insns = append(p.insns, bpf.JumpIf{Cond: bpf.JumpEqual, Val: t.addr, SkipTrue: 2})
			p.load(ipOff+16, 4)
			p.require(t.addr)
		case termNet:
			p.load(ipOff+12, 4)
			p.insns = append(p.insns,
				bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: t.mask},
				bpf.JumpIf{Cond: bpf.JumpEqual, Val: t.addr, SkipTrue: 3},
			)
			p.load(ipOff+16, 4)
			p.insns = append(p.insns, bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: t.mask})
			p.require(t.addr)
		}
	}
	return p.finish()
}
