package firmata

import (
	"strconv"
	"strings"
)

// PinSpec selects a pin, e.g. "d:13:o" or "a:0:i".
// Analog pins are numbered by analog channel, digital pins by pin number.
type PinSpec struct {
	Analog bool
	Number int
	// Mode is the mode requested, ModeUnset when omitted.
	Mode Mode

	raw string
}

var roleModes = map[string]Mode{
	"i": ModeInput,
	"o": ModeOutput,
	"p": ModePWM,
	"s": ModeServo,
}

// ParsePinSpec parses "<a|d>:<number>[:<i|o|p|s>]".
func ParsePinSpec(s string) (PinSpec, error) {
	spec := PinSpec{Mode: ModeUnset, raw: s}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return spec, &DefinitionError{Spec: s, Reason: "expect <a|d>:<number>[:<role>]"}
	}
	switch parts[0] {
	case "a":
		spec.Analog = true
	case "d":
	default:
		return spec, &DefinitionError{Spec: s, Reason: "unknown domain " + parts[0]}
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return spec, &DefinitionError{Spec: s, Reason: "invalid pin number " + parts[1]}
	}
	spec.Number = n
	if len(parts) == 3 {
		mode, ok := roleModes[parts[2]]
		if !ok {
			return spec, &DefinitionError{Spec: s, Reason: "unknown role " + parts[2]}
		}
		spec.Mode = mode
	}
	if spec.Analog {
		if spec.Mode != ModeUnset && spec.Mode != ModeInput {
			return spec, &DefinitionError{Spec: s, Reason: "analog pins are input only"}
		}
		spec.Mode = ModeAnalog
	} else if spec.Mode == ModeUnset {
		return spec, &DefinitionError{Spec: s, Reason: "missing role"}
	}
	return spec, nil
}

// String implements fmt.Stringer.
func (s PinSpec) String() string {
	if s.raw != "" {
		return s.raw
	}
	domain, role := "d", ""
	if s.Analog {
		domain, role = "a", "i"
	}
	for r, m := range roleModes {
		if m == s.Mode {
			role = r
		}
	}
	return domain + ":" + strconv.Itoa(s.Number) + ":" + role
}

// GetPinString parses the spec and calls GetPin.
func (b *Board) GetPinString(s string) (*Pin, error) {
	spec, err := ParsePinSpec(s)
	if err != nil {
		return nil, err
	}
	return b.GetPin(spec)
}

// GetPin takes a pin and sets it to the requested mode. A pin can only
// be taken once.
func (b *Board) GetPin(spec PinSpec) (*Pin, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.IsClosed() {
		return nil, ErrClosed
	}
	var pin *Pin
	if spec.Analog {
		if spec.Number < len(b.analog) {
			pin = b.analog[spec.Number]
		}
	} else if spec.Number < len(b.pins) && contains(b.layout.Digital(), spec.Number) {
		pin = b.pins[spec.Number]
	}
	if pin == nil {
		return nil, &DefinitionError{Spec: spec.String(), Reason: "pin out of range"}
	}
	if pin.disabled {
		return nil, &DefinitionError{Spec: spec.String(), Reason: "pin is disabled"}
	}
	if !pin.Supports(spec.Mode) {
		return nil, &DefinitionError{Spec: spec.String(), Reason: spec.Mode.String() + " mode not supported"}
	}
	if pin.taken {
		return nil, &OwnershipError{Pin: pin}
	}
	pin.taken = true
	if err := pin.setModeLocked(spec.Mode); err != nil {
		pin.taken = false
		return nil, err
	}
	return pin, nil
}
