// Package firmata provides host side support for the Firmata protocol.
package firmata

// Firmata is communicated between a microcontroller running Firmata firmware
// and a host over a byte-oriented link (usually a serial port). Messages are
// MIDI framed: a status byte (>= 0x80) followed by 7-bit data bytes, or a
// sysex block bounded by START_SYSEX and END_SYSEX.
//
// The Parser is lenient. It never reports an error for a bad frame; unknown
// commands and stray data bytes are skipped until the next recognizable
// status byte, so a lost byte costs at most one frame.
//
// Producer: microcontroller firmware
// Consumer: Board
