package firmata

// DefaultMaxSysexSize limits the payload buffered for one sysex frame.
const DefaultMaxSysexSize = 8192

// Frame is a decoded message.
type Frame struct {
	// Command is the status byte with the channel nibble cleared,
	// or the sysex command if Sysex is set.
	Command byte
	Channel byte
	Sysex   bool
	Handler Handler
	Data    []byte
}

// Parser reconstructs frames from bytes received.
type Parser struct {
	Table        *CommandTable
	MaxSysexSize int

	state   parseState
	frame   *Frame
	need    int
	dropped uint64
}

type parseState int

const (
	stateIdle         parseState = iota // waiting for a status byte
	stateData                           // collecting fixed arity data
	stateSysexCommand                   // START_SYSEX received, waiting for command
	stateSysexData                      // collecting sysex payload until END_SYSEX
)

// NewParser creates a Parser using the table.
func NewParser(table *CommandTable) *Parser {
	return &Parser{Table: table, MaxSysexSize: DefaultMaxSysexSize}
}

// Reset drops any partially received frame.
func (p *Parser) Reset() {
	if p.state != stateIdle {
		p.dropped++
	}
	p.state, p.frame, p.need = stateIdle, nil, 0
}

// Dropped returns the number of partial frames discarded so far.
func (p *Parser) Dropped() uint64 {
	return p.dropped
}

// InFrame indicates a frame is partially received.
func (p *Parser) InFrame() bool {
	return p.state != stateIdle
}

// Parse consumes one byte and returns a frame when it completes one.
func (p *Parser) Parse(b byte) *Frame {
	switch p.state {
	case stateData:
		if b&0x80 != 0 {
			p.Reset()
			return p.parseLead(b)
		}
		p.frame.Data = append(p.frame.Data, b)
		if len(p.frame.Data) >= p.need {
			return p.frameReady()
		}
	case stateSysexCommand:
		if b&0x80 != 0 {
			p.Reset()
			return p.parseLead(b)
		}
		h, ok := p.Table.LookupSysex(b)
		if !ok {
			// the payload is 7-bit and gets skipped as stray data.
			p.state = stateIdle
			return nil
		}
		p.frame = &Frame{Command: b, Sysex: true, Handler: h}
		p.state = stateSysexData
	case stateSysexData:
		if b == EndSysex {
			return p.frameReady()
		}
		if b&0x80 != 0 {
			p.Reset()
			return p.parseLead(b)
		}
		if len(p.frame.Data) >= p.maxSysexSize() {
			p.Reset()
			return nil
		}
		p.frame.Data = append(p.frame.Data, b)
	default:
		return p.parseLead(b)
	}
	return nil
}

func (p *Parser) parseLead(b byte) *Frame {
	if b == StartSysex {
		p.state = stateSysexCommand
		return nil
	}
	h, arity, ok := p.Table.Lookup(b)
	if !ok {
		return nil
	}
	f := &Frame{Command: b, Handler: h}
	if b < 0xF0 {
		f.Command, f.Channel = b&0xF0, b&0x0F
	}
	if arity == 0 {
		return f
	}
	f.Data = make([]byte, 0, arity)
	p.frame, p.need, p.state = f, arity, stateData
	return nil
}

func (p *Parser) frameReady() (f *Frame) {
	f, p.frame = p.frame, nil
	p.state, p.need = stateIdle, 0
	return
}

func (p *Parser) maxSysexSize() int {
	if p.MaxSysexSize > 0 {
		return p.MaxSysexSize
	}
	return DefaultMaxSysexSize
}
