package dissect

import "errors"

// Sentinel errors. Malformed input never produces one of these from
// Parse or Next; they surface only from the View and Cursor primitives.
var (
	// ErrOutOfRange is returned when a View is sliced or read outside its bounds.
	ErrOutOfRange = errors.New("dissect: view range out of bounds")

	// ErrBoundsExceeded is returned when a Cursor operation asks for more
	// bytes than are available from the current head.
	ErrBoundsExceeded = errors.New("dissect: cursor bounds exceeded")

	// ErrContractViolation marks a Layer that claimed more bytes than
	// Validate established. It is only ever raised through panic.
	ErrContractViolation = errors.New("dissect: layer contract violation")

	// ErrUnknownProtocol is returned when a protocol name cannot be resolved.
	ErrUnknownProtocol = errors.New("dissect: unknown protocol")
)
