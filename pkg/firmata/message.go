package firmata

// Builders for outbound messages. All of them return the exact bytes
// to be written to the transport.

func analogMessage(pin, value int) ([]byte, error) {
	if pin > 0x0f {
		return extendedAnalogMessage(pin, value)
	}
	return appendTwoBytes([]byte{AnalogMessage | byte(pin)}, value)
}

// extendedAnalogMessage addresses pins beyond the channel nibble.
func extendedAnalogMessage(pin, value int) ([]byte, error) {
	if value < 0 {
		return nil, ErrValueOutOfRange
	}
	b := []byte{StartSysex, ExtendedAnalog, byte(pin) & 0x7f, byte(value & 0x7f)}
	for v := value >> 7; v > 0; v >>= 7 {
		b = append(b, byte(v&0x7f))
	}
	if len(b) < 5 {
		b = append(b, 0)
	}
	return append(b, EndSysex), nil
}

func digitalMessage(port, mask int) ([]byte, error) {
	return appendTwoBytes([]byte{DigitalMessage | byte(port&0x0f)}, mask)
}

func reportAnalogMessage(channel int, enable bool) []byte {
	return []byte{ReportAnalog | byte(channel&0x0f), boolByte(enable)}
}

func reportDigitalMessage(port int, enable bool) []byte {
	return []byte{ReportDigital | byte(port&0x0f), boolByte(enable)}
}

func setPinModeMessage(pin int, mode Mode) []byte {
	return []byte{SetPinMode, byte(pin) & 0x7f, byte(mode)}
}

func setDigitalPinValueMessage(pin int, value bool) []byte {
	return []byte{SetDigitalPinValue, byte(pin) & 0x7f, boolByte(value)}
}

// sysexMessage frames data in a sysex block.
func sysexMessage(cmd byte, data []byte) ([]byte, error) {
	if cmd > 0x7f {
		return nil, ErrInvalidSysexData
	}
	b := make([]byte, 0, len(data)+3)
	b = append(b, StartSysex, cmd)
	for _, d := range data {
		if d > 0x7f {
			return nil, ErrInvalidSysexData
		}
		b = append(b, d)
	}
	return append(b, EndSysex), nil
}

func servoConfigMessage(pin, minPulse, maxPulse int) ([]byte, error) {
	data := []byte{byte(pin) & 0x7f}
	var err error
	if data, err = appendTwoBytes(data, minPulse); err != nil {
		return nil, err
	}
	if data, err = appendTwoBytes(data, maxPulse); err != nil {
		return nil, err
	}
	return sysexMessage(ServoConfig, data)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
