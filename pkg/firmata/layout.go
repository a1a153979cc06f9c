package firmata

import (
	"errors"
	"sort"
)

// Layout describes which pins support which capabilities.
// Pin numbers are absolute. The position of a pin in Analog is its
// analog channel, which is what analog messages address on the wire.
type Layout struct {
	DigitalInput  []int
	DigitalOutput []int
	Analog        []int
	PWM           []int
	Servo         []int
	I2C           []int
	Disabled      []int

	// Pins is the total number of pins, including trailing pins without
	// capabilities. Zero means derived from the sets above.
	Pins int

	resolutions map[int]map[Mode]int
}

// Default resolutions when a layout doesn't tell.
var defaultResolutions = map[Mode]int{
	ModeInput:  1,
	ModeOutput: 1,
	ModeAnalog: 10,
	ModePWM:    8,
	ModeServo:  14,
	ModeI2C:    1,
}

// PinCount returns the number of pins covered by the layout.
func (l *Layout) PinCount() int {
	n := l.Pins
	for _, set := range l.sets() {
		for _, pin := range set {
			if pin+1 > n {
				n = pin + 1
			}
		}
	}
	return n
}

// Digital returns the sorted pins with either digital capability.
func (l *Layout) Digital() []int {
	return union(l.DigitalInput, l.DigitalOutput)
}

// SupportedModes lists the modes a pin supports in wire order.
func (l *Layout) SupportedModes(pin int) []Mode {
	var modes []Mode
	for _, m := range []struct {
		mode Mode
		set  []int
	}{
		{ModeInput, l.DigitalInput},
		{ModeOutput, l.DigitalOutput},
		{ModeAnalog, l.Analog},
		{ModePWM, l.PWM},
		{ModeServo, l.Servo},
		{ModeI2C, l.I2C},
	} {
		if contains(m.set, pin) {
			modes = append(modes, m.mode)
		}
	}
	return modes
}

// IsDisabled indicates the pin can't be used.
func (l *Layout) IsDisabled(pin int) bool {
	return contains(l.Disabled, pin)
}

// AnalogChannel returns the analog channel of a pin or -1.
func (l *Layout) AnalogChannel(pin int) int {
	for ch, p := range l.Analog {
		if p == pin {
			return ch
		}
	}
	return -1
}

// Resolution returns the resolution in bits of a pin in a mode.
func (l *Layout) Resolution(pin int, mode Mode) int {
	if res, ok := l.resolutions[pin][mode]; ok {
		return res
	}
	return defaultResolutions[mode]
}

// SetResolution records the resolution of a pin in a mode.
func (l *Layout) SetResolution(pin int, mode Mode, res int) *Layout {
	if l.resolutions == nil {
		l.resolutions = make(map[int]map[Mode]int)
	}
	modes := l.resolutions[pin]
	if modes == nil {
		modes = make(map[Mode]int)
		l.resolutions[pin] = modes
	}
	modes[mode] = res
	return l
}

// Validate checks the layout is usable.
func (l *Layout) Validate() error {
	if l.PinCount() == 0 {
		return errors.New("layout has no pins")
	}
	for _, set := range l.sets() {
		for _, pin := range set {
			if pin < 0 || pin > 0x7f {
				return errors.New("layout pin number out of range")
			}
		}
	}
	return nil
}

func (l *Layout) sets() [][]int {
	return [][]int{l.DigitalInput, l.DigitalOutput, l.Analog, l.PWM, l.Servo, l.I2C, l.Disabled}
}

func (l *Layout) addCapability(pin int, mode Mode, res int) {
	switch {
	case mode == ModeInput && res == 1:
		l.DigitalInput = append(l.DigitalInput, pin)
	case mode == ModeOutput && res == 1:
		l.DigitalOutput = append(l.DigitalOutput, pin)
	case mode == ModeAnalog:
		l.Analog = append(l.Analog, pin)
	case mode == ModePWM:
		l.PWM = append(l.PWM, pin)
	case mode == ModeServo:
		l.Servo = append(l.Servo, pin)
	case mode == ModeI2C && res == 1:
		l.I2C = append(l.I2C, pin)
	}
	l.SetResolution(pin, mode, res)
}

// ParseCapabilityResponse builds a Layout from the payload of
// CapabilityResponse. Each pin is a list of (mode, resolution) pairs
// terminated by 0x7F. A pin without pairs is disabled.
func ParseCapabilityResponse(data []byte) (*Layout, error) {
	l := &Layout{}
	pin, start := 0, 0
	for i, b := range data {
		if b != pinDelimiter {
			continue
		}
		block := data[start:i]
		if len(block) == 0 {
			l.Disabled = append(l.Disabled, pin)
		} else if len(block)%2 != 0 {
			return nil, errDecode("capability of pin %d has odd length %d", pin, len(block))
		}
		for n := 0; n < len(block); n += 2 {
			l.addCapability(pin, Mode(block[n]), int(block[n+1]))
		}
		pin++
		start = i + 1
	}
	if start != len(data) {
		return nil, errDecode("capability of pin %d not terminated", pin)
	}
	if pin == 0 {
		return nil, errDecode("capability response without pins")
	}
	l.Pins = pin
	return l, nil
}

func contains(set []int, v int) bool {
	for _, n := range set {
		if n == v {
			return true
		}
	}
	return false
}

func union(sets ...[]int) []int {
	seen := make(map[int]bool)
	var res []int
	for _, set := range sets {
		for _, v := range set {
			if !seen[v] {
				seen[v] = true
				res = append(res, v)
			}
		}
	}
	sort.Ints(res)
	return res
}
