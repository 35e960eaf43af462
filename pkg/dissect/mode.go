package dissect

import (
	"fmt"
	"strings"
)

// Mode selects how strictly length fields are checked against the buffer.
type Mode uint8

const (
	// ModeFull requires every declared payload to be present in the buffer.
	ModeFull Mode = iota

	// ModeHeaders accepts buffers captured with a short snap length: only
	// header bytes must be present, declared payload lengths are clamped
	// to what the buffer holds.
	ModeHeaders
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeHeaders:
		return "headers"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode resolves "full" or "headers".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, nil
	case "headers", "headers-only", "header":
		return ModeHeaders, nil
	default:
		return ModeFull, fmt.Errorf("dissect: unknown mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
