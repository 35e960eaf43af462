package dissect

import "fmt"

// Option configures a Parser.
type Option func(*Parser)

// WithMode selects full-packet or headers-only dissection.
func WithMode(m Mode) Option {
	return func(p *Parser) {
		p.mode = m
	}
}

// Parser walks the protocol stack of one packet.
//
// A Parser holds a cursor into the caller's buffer and the identity of the
// current layer. It never allocates and never copies packet bytes; the
// buffer must outlive it. A Parser is not safe for concurrent use, but any
// number of Parsers may share one read-only buffer.
//
// The zero Parser is ready for Reset.
type Parser struct {
	cursor  Cursor
	proto   Protocol
	mode    Mode
	started bool

	hdrLen     int
	payloadLen int
}

// NewParser returns a Parser positioned at the start of v.
func NewParser(v View, opts ...Option) Parser {
	p := Parser{cursor: newCursor(v)}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Reset points p at a new buffer, keeping its mode.
func (p *Parser) Reset(v View) {
	*p = Parser{cursor: newCursor(v), mode: p.mode}
}

// Mode returns the dissection mode.
func (p *Parser) Mode() Mode { return p.mode }

// Parse validates the first layer. It only succeeds on a fresh parser;
// once anything has been parsed the parser moves to End instead.
func (p *Parser) Parse(first Protocol) Protocol {
	if p.started {
		return p.stop()
	}
	p.started = true
	return p.enter(first)
}

// ParseEthernet is Parse(Ethernet).
func (p *Parser) ParseEthernet() Protocol {
	return p.Parse(Ethernet)
}

// Next consumes the current header and validates the layer that follows.
// In End it does nothing.
func (p *Parser) Next() Protocol {
	if p.proto == End {
		return End
	}
	want := p.cursor.head + p.hdrLen
	candidate := layerTable[p.proto].Next(&p.cursor)
	if p.cursor.head != want {
		panic(fmt.Errorf("%w: %s advanced to %d, header ends at %d",
			ErrContractViolation, p.proto, p.cursor.head, want))
	}
	return p.enter(candidate)
}

// enter validates candidate at the cursor and makes it current.
func (p *Parser) enter(candidate Protocol) Protocol {
	if candidate == End || !candidate.Valid() {
		return p.stop()
	}
	l := layerTable[candidate]
	if !l.Validate(&p.cursor, p.mode) {
		return p.stop()
	}
	hdr := l.HeaderLen(&p.cursor)
	payload := l.PayloadLen(&p.cursor, p.mode)
	if hdr < 0 || payload < 0 || hdr+payload > p.cursor.Usable() {
		panic(fmt.Errorf("%w: %s claims header %d + payload %d, %d usable",
			ErrContractViolation, candidate, hdr, payload, p.cursor.Usable()))
	}
	if err := p.cursor.DeclarePadding(p.cursor.Available() - hdr - payload); err != nil {
		panic(fmt.Errorf("%w: %v", ErrContractViolation, err))
	}
	p.proto = candidate
	p.hdrLen = hdr
	p.payloadLen = payload
	return candidate
}

func (p *Parser) stop() Protocol {
	p.proto = End
	p.hdrLen = 0
	p.payloadLen = 0
	return End
}

// Protocol returns the current layer, End before Parse and after the
// stack is exhausted.
func (p *Parser) Protocol() Protocol { return p.proto }

// Header returns the current layer's header bytes.
func (p *Parser) Header() View {
	if p.proto == End {
		return View{}
	}
	return p.cursor.window(0, p.hdrLen)
}

// Payload returns the current layer's payload bytes, which start right
// after Header.
func (p *Parser) Payload() View {
	if p.proto == End {
		return View{}
	}
	return p.cursor.window(p.hdrLen, p.payloadLen)
}

// Packet returns everything from the current header to the end of the
// buffer: header, payload, and any padding of this and enclosing layers.
func (p *Parser) Packet() View {
	if p.proto == End {
		return View{}
	}
	return p.cursor.Remaining()
}

// Offset returns the cursor position relative to the buffer start.
func (p *Parser) Offset() int { return p.cursor.Offset() }

// Available returns the bytes remaining from the cursor.
func (p *Parser) Available() int { return p.cursor.Available() }

// Padding returns the trailing bytes that belong to no payload at the
// current layer.
func (p *Parser) Padding() int { return p.cursor.Padding() }

// Walk parses first and calls fn for every valid layer until the stack
// ends or fn returns false. It returns the number of layers visited.
func (p *Parser) Walk(first Protocol, fn func(*Parser) bool) int {
	depth := 0
	for proto := p.Parse(first); proto != End; proto = p.Next() {
		depth++
		if fn != nil && !fn(p) {
			break
		}
	}
	return depth
}
