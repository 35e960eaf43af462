package dissect

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// View is an immutable, non-owning window over caller storage.
//
// A View never copies: every View handed out by this package aliases the
// buffer given to NewView, and the caller must keep that buffer alive and
// unmodified while any View or Parser over it is in use. The capacity of
// the wrapped slice is always clipped to its length, so appending to
// Bytes() can never scribble over the bytes that follow the window.
type View struct {
	b []byte
}

// NewView wraps b without copying.
func NewView(b []byte) View {
	return View{b: b[:len(b):len(b)]}
}

// Len returns the number of bytes in the window.
func (v View) Len() int { return len(v.b) }

// IsEmpty reports whether the window has zero length.
func (v View) IsEmpty() bool { return len(v.b) == 0 }

// Bytes returns the window as a slice. The slice aliases the caller's
// buffer and must be treated as read-only.
func (v View) Bytes() []byte { return v.b }

// Slice returns the sub-window [off, off+n).
func (v View) Slice(off, n int) (View, error) {
	if off < 0 || n < 0 || off > len(v.b) || n > len(v.b)-off {
		return View{}, fmt.Errorf("%w: [%d, %d+%d) of %d", ErrOutOfRange, off, off, n, len(v.b))
	}
	end := off + n
	return View{b: v.b[off:end:end]}, nil
}

// Equal reports whether both views cover the same bytes of the same
// storage. Content is not compared.
func (v View) Equal(o View) bool {
	return len(v.b) == len(o.b) && unsafe.SliceData(v.b) == unsafe.SliceData(o.b)
}

// Uint8 reads the byte at off.
func (v View) Uint8(off int) (uint8, error) {
	if off < 0 || off >= len(v.b) {
		return 0, fmt.Errorf("%w: uint8 at %d of %d", ErrOutOfRange, off, len(v.b))
	}
	return v.b[off], nil
}

// Uint16 reads a big-endian uint16 at off.
func (v View) Uint16(off int) (uint16, error) {
	if off < 0 || off > len(v.b)-2 {
		return 0, fmt.Errorf("%w: uint16 at %d of %d", ErrOutOfRange, off, len(v.b))
	}
	return binary.BigEndian.Uint16(v.b[off:]), nil
}

// Uint32 reads a big-endian uint32 at off.
func (v View) Uint32(off int) (uint32, error) {
	if off < 0 || off > len(v.b)-4 {
		return 0, fmt.Errorf("%w: uint32 at %d of %d", ErrOutOfRange, off, len(v.b))
	}
	return binary.BigEndian.Uint32(v.b[off:]), nil
}

// String implements fmt.Stringer for debugging.
func (v View) String() string {
	return fmt.Sprintf("View(len=%d)", len(v.b))
}
