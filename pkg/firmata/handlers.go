package firmata

import (
	"github.com/golang/glog"
)

// PinState is reported by the board in PinStateResponse.
type PinState struct {
	Mode  Mode
	State int
}

type change struct {
	pin *Pin
	r   Reading
}

func (b *Board) dispatch(f *Frame) {
	var (
		changes []change
		err     error
	)
	switch f.Handler {
	case HandleAnalogMessage:
		changes, err = b.handleAnalog(int(f.Channel), FromTwoBytes(f.Data[0], f.Data[1]))
	case HandleDigitalMessage:
		changes, err = b.handleDigital(int(f.Channel), FromTwoBytes(f.Data[0], f.Data[1]))
	case HandleReportVersion:
		b.version.Store(Version{Major: int(f.Data[0]), Minor: int(f.Data[1])})
		glog.V(2).Infof("%s: protocol version %d.%d", b.Name, f.Data[0], f.Data[1])
	case HandleReportFirmware:
		err = b.handleFirmware(f.Data)
	case HandleCapabilityResponse:
		err = b.handleCapability(f.Data)
	case HandlePinStateResponse:
		err = b.handlePinState(f.Data)
	case HandleStringData:
		b.handleString(f.Data)
	case HandleCustomSysex:
		if h := b.sysex[f.Command]; h != nil {
			err = h(b, f.Data)
		}
	}
	if err != nil {
		b.parser.Reset()
		glog.V(2).Infof("%s: frame %#02x dropped: %v", b.Name, f.Command, err)
		return
	}
	b.notify(changes)
}

func (b *Board) handleAnalog(channel, raw int) ([]change, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if channel >= len(b.analog) {
		return nil, errDecode("analog channel %d out of range", channel)
	}
	pin := b.analog[channel]
	if !pin.reporting {
		return nil, nil
	}
	r, changed := pin.latch(ScaleAnalog(raw))
	if !changed {
		return nil, nil
	}
	return []change{{pin: pin, r: r}}, nil
}

func (b *Board) handleDigital(port, mask int) ([]change, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if port >= len(b.ports) {
		return nil, errDecode("port %d out of range", port)
	}
	p := b.ports[port]
	if !p.reporting {
		return nil, nil
	}
	var changes []change
	for bit, pin := range p.pins {
		if pin == nil || pin.mode != ModeInput {
			continue
		}
		if r, changed := pin.latch(float64((mask >> uint(bit)) & 1)); changed {
			changes = append(changes, change{pin: pin, r: r})
		}
	}
	return changes, nil
}

func (b *Board) handleFirmware(data []byte) error {
	if len(data) < 2 {
		return errDecode("firmware report too short")
	}
	fw := Firmware{
		Major: int(data[0]),
		Minor: int(data[1]),
		Name:  TwoByteString(data[2:]),
	}
	b.firmware.Store(fw)
	glog.Infof("%s: firmware %s", b.Name, fw)
	return nil
}

func (b *Board) handleCapability(data []byte) error {
	l, err := ParseCapabilityResponse(data)
	if err != nil {
		return err
	}
	b.lock.Lock()
	b.candidate = l
	b.negotiation = negotiateLayoutReceived
	b.lock.Unlock()
	return nil
}

func (b *Board) handlePinState(data []byte) error {
	if len(data) < 2 {
		return errDecode("pin state response too short")
	}
	pin := b.Pin(int(data[0]))
	if pin == nil {
		return errDecode("pin state of unknown pin %d", data[0])
	}
	st := PinState{Mode: Mode(data[1])}
	for n, v := range data[2:] {
		st.State |= int(v&0x7f) << (7 * uint(n))
	}
	pin.state.Store(st)
	return nil
}

func (b *Board) handleString(data []byte) {
	s := TwoByteString(data)
	glog.Infof("%s: %s", b.Name, s)
	b.cbLock.RLock()
	fns := b.onString
	b.cbLock.RUnlock()
	for _, fn := range fns {
		fn(b, s)
	}
}

// notify runs outside of the board lock so callbacks can use the pin API.
func (b *Board) notify(changes []change) {
	if len(changes) == 0 {
		return
	}
	b.cbLock.RLock()
	global := b.onChange
	b.cbLock.RUnlock()
	for _, c := range changes {
		b.cbLock.RLock()
		fns := c.pin.onChange
		b.cbLock.RUnlock()
		for _, fn := range fns {
			fn(c.pin, c.r)
		}
		for _, fn := range global {
			fn(c.pin, c.r)
		}
	}
}
