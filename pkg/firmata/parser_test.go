package firmata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type parserTestBuilder struct {
	in     []byte
	frames []Frame
}

func parserTest() *parserTestBuilder {
	return &parserTestBuilder{}
}

func (b *parserTestBuilder) noise(in ...byte) *parserTestBuilder {
	b.in = append(b.in, in...)
	return b
}

func (b *parserTestBuilder) frame(f Frame, in ...byte) *parserTestBuilder {
	b.in = append(b.in, in...)
	b.frames = append(b.frames, f)
	return b
}

func (b *parserTestBuilder) analog(ch, lsb, msb byte) *parserTestBuilder {
	return b.frame(Frame{Command: AnalogMessage, Channel: ch, Handler: HandleAnalogMessage, Data: []byte{lsb, msb}},
		AnalogMessage|ch, lsb, msb)
}

func (b *parserTestBuilder) digital(port, lsb, msb byte) *parserTestBuilder {
	return b.frame(Frame{Command: DigitalMessage, Channel: port, Handler: HandleDigitalMessage, Data: []byte{lsb, msb}},
		DigitalMessage|port, lsb, msb)
}

func (b *parserTestBuilder) sysex(cmd byte, h Handler, data ...byte) *parserTestBuilder {
	in := append([]byte{StartSysex, cmd}, data...)
	return b.frame(Frame{Command: cmd, Sysex: true, Handler: h, Data: data}, append(in, EndSysex)...)
}

func (b *parserTestBuilder) run(t *testing.T, p *Parser) {
	var frames []Frame
	for _, c := range b.in {
		if f := p.Parse(c); f != nil {
			if len(f.Data) == 0 {
				f.Data = nil
			}
			frames = append(frames, *f)
		}
	}
	var expected []Frame
	for _, f := range b.frames {
		if len(f.Data) == 0 {
			f.Data = nil
		}
		expected = append(expected, f)
	}
	require.Equal(t, expected, frames)
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name    string
		test    *parserTestBuilder
		dropped uint64
	}{
		{
			name: "channel messages",
			test: parserTest().analog(4, 127, 7).digital(1, 0x20, 0),
		},
		{
			name: "system message",
			test: parserTest().frame(Frame{Command: ReportVersion, Handler: HandleReportVersion, Data: []byte{2, 5}},
				ReportVersion, 2, 5),
		},
		{
			name: "sysex",
			test: parserTest().
				sysex(ReportFirmware, HandleReportFirmware, 2, 5, 'S', 0).
				sysex(StringData, HandleStringData),
		},
		{
			name: "leading noise",
			test: parserTest().noise(0x01, 0x7f, 0x22).analog(0, 1, 2),
		},
		{
			name: "trailing noise",
			test: parserTest().analog(4, 127, 7).noise(10, 9, 8, 7, 6, 5, 4, 3, 2, 1),
		},
		{
			name:    "truncated channel command after frame",
			test:    parserTest().analog(4, 127, 7).noise(AnalogMessage|1, 5).analog(2, 1, 1),
			dropped: 1,
		},
		{
			name: "unregistered command",
			test: parserTest().noise(0xA0, 0x10, 0x20, 0xFE).digital(0, 1, 0),
		},
		{
			name: "unregistered sysex",
			test: parserTest().noise(StartSysex, 0x10, 1, 2, 3, EndSysex).analog(2, 3, 4),
		},
		{
			name:    "status byte in data",
			test:    parserTest().noise(AnalogMessage, 5).digital(2, 1, 0),
			dropped: 1,
		},
		{
			name:    "status byte in sysex",
			test:    parserTest().noise(StartSysex, ReportFirmware, 1, 2).analog(1, 0, 1),
			dropped: 1,
		},
		{
			name:    "truncated sysex start",
			test:    parserTest().noise(StartSysex).digital(3, 0, 0),
			dropped: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser(DefaultCommandTable())
			tc.test.run(t, p)
			require.Equal(t, tc.dropped, p.Dropped())
			require.False(t, p.InFrame())
		})
	}
}

func TestParserPartialDelivery(t *testing.T) {
	p := NewParser(DefaultCommandTable())
	require.Nil(t, p.Parse(AnalogMessage|3))
	require.True(t, p.InFrame())
	require.Nil(t, p.Parse(0x10))
	f := p.Parse(0x02)
	require.NotNil(t, f)
	require.Equal(t, byte(3), f.Channel)
	require.Equal(t, 0x110, FromTwoBytes(f.Data[0], f.Data[1]))
}

func TestParserMaxSysexSize(t *testing.T) {
	p := NewParser(DefaultCommandTable())
	p.MaxSysexSize = 4
	parserTest().
		noise(StartSysex, StringData, 1, 2, 3, 4, 5, 6, EndSysex).
		sysex(StringData, HandleStringData, 1, 2, 3, 4).
		run(t, p)
	require.Equal(t, uint64(1), p.Dropped())
}

func TestCommandTable(t *testing.T) {
	table := DefaultCommandTable()
	h, arity, ok := table.Lookup(0xE5)
	require.True(t, ok)
	require.Equal(t, HandleAnalogMessage, h)
	require.Equal(t, 2, arity)

	_, ok = table.LookupSysex(CapabilityResponse)
	require.False(t, ok)
	table.RegisterSysex(CapabilityResponse, HandleCapabilityResponse)
	h, ok = table.LookupSysex(CapabilityResponse)
	require.True(t, ok)
	require.Equal(t, HandleCapabilityResponse, h)
	table.UnregisterSysex(CapabilityResponse)
	_, ok = table.LookupSysex(CapabilityResponse)
	require.False(t, ok)

	table.Unregister(AnalogMessage)
	_, _, ok = table.Lookup(0xE0)
	require.False(t, ok)
	_, _, ok = table.Lookup(0x10)
	require.False(t, ok)

	require.Panics(t, func() { table.Register(0x40, HandleCustomSysex, 1) })
	require.Panics(t, func() { table.Register(StartSysex, HandleCustomSysex, 1) })
	require.Panics(t, func() { table.Register(0xA0, HandleCustomSysex, -1) })
}
