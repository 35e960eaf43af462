package dissect

import "fmt"

// Cursor is a bounds-checked read position over a View.
//
// Available counts the bytes from the head to the end of the original
// buffer. Padding counts trailing bytes of that range which an enclosing
// layer declared as not belonging to its payload (Ethernet minimum-frame
// fill, for instance). Padding declared by an outer layer stays in force
// for the layers nested inside it, which is why layers measure themselves
// against Usable rather than Available.
type Cursor struct {
	buf     []byte
	head    int
	padding int
}

func newCursor(v View) Cursor {
	return Cursor{buf: v.b}
}

// Available returns the number of readable bytes from the head.
func (c *Cursor) Available() int { return len(c.buf) - c.head }

// Padding returns the declared trailing padding.
func (c *Cursor) Padding() int { return c.padding }

// Usable returns Available minus Padding.
func (c *Cursor) Usable() int { return len(c.buf) - c.head - c.padding }

// Offset returns the head position relative to the start of the buffer.
func (c *Cursor) Offset() int { return c.head }

// Advance moves the head forward by n bytes.
func (c *Cursor) Advance(n int) error {
	if n < 0 || n > c.Available() {
		return fmt.Errorf("%w: advance %d, %d available", ErrBoundsExceeded, n, c.Available())
	}
	c.head += n
	// Advancing into the padding shrinks it; padding never exceeds Available.
	if avail := c.Available(); c.padding > avail {
		c.padding = avail
	}
	return nil
}

// DeclarePadding records the last n bytes of the available range as
// padding.
func (c *Cursor) DeclarePadding(n int) error {
	if n < 0 || n > c.Available() {
		return fmt.Errorf("%w: padding %d, %d available", ErrBoundsExceeded, n, c.Available())
	}
	c.padding = n
	return nil
}

// Peek returns the window [head+off, head+off+n) without moving the head.
func (c *Cursor) Peek(off, n int) (View, error) {
	avail := c.Available()
	if off < 0 || n < 0 || off > avail || n > avail-off {
		return View{}, fmt.Errorf("%w: peek [%d, %d+%d), %d available", ErrBoundsExceeded, off, off, n, avail)
	}
	start := c.head + off
	end := start + n
	return View{b: c.buf[start:end:end]}, nil
}

// Remaining returns the window from the head to the end of the buffer.
func (c *Cursor) Remaining() View {
	return View{b: c.buf[c.head:len(c.buf):len(c.buf)]}
}

// window returns [head+off, head+off+n) for lengths the driver has
// already checked against Available.
func (c *Cursor) window(off, n int) View {
	v, err := c.Peek(off, n)
	if err != nil {
		panic(fmt.Errorf("%w: %v", ErrContractViolation, err))
	}
	return v
}
