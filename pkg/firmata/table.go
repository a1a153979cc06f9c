package firmata

// Handler identifies the handling logic of a decoded frame.
type Handler uint8

// Predefined handlers.
const (
	NoHandler Handler = iota
	HandleAnalogMessage
	HandleDigitalMessage
	HandleReportVersion
	HandleReportFirmware
	HandleCapabilityResponse
	HandlePinStateResponse
	HandleStringData
	HandleCustomSysex
)

type commandEntry struct {
	handler Handler
	arity   int
}

// CommandTable maps command bytes to handlers and the number of data bytes
// each command carries. Sysex commands are variable length.
// Channel commands (0x80-0xEF) are keyed by the high nibble, system
// commands (0xF0-0xFF) by the full byte.
type CommandTable struct {
	channel [8]commandEntry
	system  [16]commandEntry
	sysex   [128]Handler
}

// DefaultCommandTable creates the table with the handlers every board uses.
func DefaultCommandTable() *CommandTable {
	t := &CommandTable{}
	t.Register(AnalogMessage, HandleAnalogMessage, 2)
	t.Register(DigitalMessage, HandleDigitalMessage, 2)
	t.Register(ReportVersion, HandleReportVersion, 2)
	t.RegisterSysex(ReportFirmware, HandleReportFirmware)
	t.RegisterSysex(StringData, HandleStringData)
	t.RegisterSysex(PinStateResponse, HandlePinStateResponse)
	return t
}

// Register registers a fixed arity command. For channel commands the
// channel nibble of cmd is ignored.
func (t *CommandTable) Register(cmd byte, h Handler, arity int) *CommandTable {
	if cmd < 0x80 || cmd == StartSysex || cmd == EndSysex {
		panic("firmata: not a fixed arity command")
	}
	if arity < 0 {
		panic("firmata: negative arity")
	}
	t.entry(cmd).handler, t.entry(cmd).arity = h, arity
	return t
}

// Unregister removes a fixed arity command.
func (t *CommandTable) Unregister(cmd byte) *CommandTable {
	if cmd >= 0x80 {
		*t.entry(cmd) = commandEntry{}
	}
	return t
}

// RegisterSysex registers a sysex command.
func (t *CommandTable) RegisterSysex(cmd byte, h Handler) *CommandTable {
	t.sysex[cmd&0x7f] = h
	return t
}

// UnregisterSysex removes a sysex command.
func (t *CommandTable) UnregisterSysex(cmd byte) *CommandTable {
	t.sysex[cmd&0x7f] = NoHandler
	return t
}

// Lookup finds the handler and arity for a status byte.
func (t *CommandTable) Lookup(lead byte) (Handler, int, bool) {
	if lead < 0x80 {
		return NoHandler, 0, false
	}
	e := t.entry(lead)
	return e.handler, e.arity, e.handler != NoHandler
}

// LookupSysex finds the handler for a sysex command.
func (t *CommandTable) LookupSysex(cmd byte) (Handler, bool) {
	h := t.sysex[cmd&0x7f]
	return h, h != NoHandler
}

func (t *CommandTable) entry(cmd byte) *commandEntry {
	if cmd >= 0xF0 {
		return &t.system[cmd&0x0f]
	}
	return &t.channel[(cmd>>4)&0x07]
}
