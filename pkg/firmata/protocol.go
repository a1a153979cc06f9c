package firmata

import (
	"fmt"
	"strconv"
	"strings"
)

// Message command bytes.
const (
	DigitalMessage     byte = 0x90 // digital port report/write, low nibble is port
	AnalogMessage      byte = 0xE0 // analog report/write, low nibble is pin
	ReportAnalog       byte = 0xC0 // enable analog reporting by pin
	ReportDigital      byte = 0xD0 // enable digital reporting by port
	StartSysex         byte = 0xF0
	SetPinMode         byte = 0xF4
	SetDigitalPinValue byte = 0xF5
	EndSysex           byte = 0xF7
	ReportVersion      byte = 0xF9
	SystemReset        byte = 0xFF
)

// Extended (sysex) commands.
const (
	CapabilityQuery    byte = 0x6B
	CapabilityResponse byte = 0x6C
	PinStateQuery      byte = 0x6D
	PinStateResponse   byte = 0x6E
	ExtendedAnalog     byte = 0x6F
	ServoConfig        byte = 0x70
	StringData         byte = 0x71
	ReportFirmware     byte = 0x79
	SamplingInterval   byte = 0x7A
)

// pinDelimiter terminates a pin block in CapabilityResponse.
const pinDelimiter byte = 0x7F

// Mode is the operating mode of a pin.
type Mode int8

// Pin modes, values are the ones used on the wire.
const (
	// ModeUnset means the host hasn't assigned a mode yet.
	ModeUnset       Mode = -2
	ModeUnavailable Mode = -1
	ModeInput       Mode = 0
	ModeOutput      Mode = 1
	ModeAnalog      Mode = 2
	ModePWM         Mode = 3
	ModeServo       Mode = 4
	ModeI2C         Mode = 6
)

var modeNames = map[Mode]string{
	ModeUnset:       "UNSET",
	ModeUnavailable: "UNAVAILABLE",
	ModeInput:       "INPUT",
	ModeOutput:      "OUTPUT",
	ModeAnalog:      "ANALOG",
	ModePWM:         "PWM",
	ModeServo:       "SERVO",
	ModeI2C:         "I2C",
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "MODE(" + strconv.Itoa(int(m)) + ")"
}

// IsWireMode indicates the mode can be sent with SetPinMode.
func (m Mode) IsWireMode() bool {
	return m >= ModeInput && m <= 0x7f
}

// ParseMode parses a mode name like "PWM", case insensitive.
func ParseMode(s string) (Mode, error) {
	upper := strings.ToUpper(s)
	for m, name := range modeNames {
		if name == upper && m.IsWireMode() {
			return m, nil
		}
	}
	return ModeUnset, fmt.Errorf("unknown mode %q", s)
}
