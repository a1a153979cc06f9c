package firmata

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the board has been closed.
	ErrClosed = errors.New("board closed")
	// ErrTransportClosed is returned by transports when the underlying
	// stream was closed on purpose. The Poller stops quietly on it.
	ErrTransportClosed = errors.New("transport closed")
	// ErrNegotiationFailed indicates no layout was received for the
	// capability query.
	ErrNegotiationFailed = errors.New("board detection failed")
	// ErrValueOutOfRange indicates a value doesn't fit in 14 bits.
	ErrValueOutOfRange = errors.New("value out of 14-bit range")
	// ErrInvalidSysexData indicates sysex data contains 8-bit bytes.
	ErrInvalidSysexData = errors.New("sysex data must be 7-bit")
)

// DefinitionError indicates a pin specification or mode is not valid
// on the board.
type DefinitionError struct {
	Spec   string
	Reason string
}

// Error implements error.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid pin definition %q: %s", e.Spec, e.Reason)
}

// OwnershipError indicates the pin has been taken.
type OwnershipError struct {
	Pin *Pin
}

// Error implements error.
func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s is already taken", e.Pin)
}

// ModeError indicates the operation isn't allowed in the pin's current mode.
type ModeError struct {
	Pin  *Pin
	Mode Mode
	Op   string
}

// Error implements error.
func (e *ModeError) Error() string {
	return fmt.Sprintf("%s: can not %s in %s mode", e.Pin, e.Op, e.Mode)
}

// decodeError is returned by handlers for corrupt frames.
type decodeError struct {
	what string
}

func (e *decodeError) Error() string {
	return "decode error: " + e.what
}

func errDecode(format string, args ...interface{}) error {
	return &decodeError{what: fmt.Sprintf(format, args...)}
}
