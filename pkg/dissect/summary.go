package dissect

// LayerInfo describes one dissected layer by position, not by content.
type LayerInfo struct {
	Protocol   Protocol `json:"protocol" yaml:"protocol"`
	Offset     int      `json:"offset" yaml:"offset"`
	HeaderLen  int      `json:"header_len" yaml:"header_len"`
	PayloadLen int      `json:"payload_len" yaml:"payload_len"`
	Padding    int      `json:"padding,omitempty" yaml:"padding,omitempty"`
}

// Info describes the current layer. The zero LayerInfo is returned in End.
func (p *Parser) Info() LayerInfo {
	if p.proto == End {
		return LayerInfo{}
	}
	return LayerInfo{
		Protocol:   p.proto,
		Offset:     p.cursor.Offset(),
		HeaderLen:  p.hdrLen,
		PayloadLen: p.payloadLen,
		Padding:    p.cursor.Padding(),
	}
}

// Summary is the outcome of dissecting one packet.
type Summary struct {
	Layers []LayerInfo `json:"layers" yaml:"layers"`
	// Length is the size of the dissected buffer.
	Length int `json:"length" yaml:"length"`
	// Unparsed counts the bytes after the last header that no layer
	// interpreted, application payload and padding included.
	Unparsed int `json:"unparsed" yaml:"unparsed"`
}

// Depth returns the number of valid layers.
func (s Summary) Depth() int { return len(s.Layers) }

// Last returns the innermost valid layer, End if there was none.
func (s Summary) Last() Protocol {
	if len(s.Layers) == 0 {
		return End
	}
	return s.Layers[len(s.Layers)-1].Protocol
}

// Summarize dissects v starting at first and records every layer.
func Summarize(v View, first Protocol, opts ...Option) Summary {
	p := NewParser(v, opts...)
	return p.Summarize(first)
}

// Summarize walks the fresh parser from first and records every layer.
// Only the returned Layers slice is allocated.
func (p *Parser) Summarize(first Protocol) Summary {
	n := p.cursor.Available()
	s := Summary{Length: n, Unparsed: n}
	p.Walk(first, func(p *Parser) bool {
		info := p.Info()
		s.Layers = append(s.Layers, info)
		s.Unparsed = n - info.Offset - info.HeaderLen
		return true
	})
	return s
}
