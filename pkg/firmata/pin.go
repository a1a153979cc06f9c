package firmata

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Reading is the latched value of a pin.
// Analog and PWM values are in [0, 1], digital values are 0 or 1 and
// servo values are degrees. Valid is false before any value is known.
type Reading struct {
	Value float64
	Valid bool
	At    time.Time
}

// Bool interprets the reading as a digital value.
func (r Reading) Bool() bool {
	return r.Valid && r.Value != 0
}

// Pin is a pin on the board.
type Pin struct {
	Number int

	board    *Board
	port     *Port
	channel  int
	modes    []Mode
	disabled bool

	// guarded by board.lock.
	mode      Mode
	taken     bool
	reporting bool

	value atomic.Value
	state atomic.Value

	// guarded by board.cbLock.
	onChange []ChangeFunc
}

// String implements fmt.Stringer.
func (p *Pin) String() string {
	if p.channel >= 0 {
		return fmt.Sprintf("Pin %d (analog pin A%d)", p.Number, p.channel)
	}
	return fmt.Sprintf("Digital pin %d", p.Number)
}

// Board returns the board the pin belongs to.
func (p *Pin) Board() *Board {
	return p.board
}

// Port returns the digital port of the pin, nil if it has no port.
func (p *Pin) Port() *Port {
	return p.port
}

// AnalogChannel returns the analog channel or -1.
func (p *Pin) AnalogChannel() int {
	return p.channel
}

// SupportedModes lists the modes the pin supports.
func (p *Pin) SupportedModes() []Mode {
	return p.modes
}

// Supports indicates the pin supports the mode.
func (p *Pin) Supports(mode Mode) bool {
	if p.disabled {
		return false
	}
	for _, m := range p.modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Mode returns the current mode.
func (p *Pin) Mode() Mode {
	p.board.lock.RLock()
	defer p.board.lock.RUnlock()
	return p.mode
}

// IsTaken indicates the pin has been handed out by GetPin.
func (p *Pin) IsTaken() bool {
	p.board.lock.RLock()
	defer p.board.lock.RUnlock()
	return p.taken
}

// IsReporting indicates the board reports values of the pin.
func (p *Pin) IsReporting() bool {
	p.board.lock.RLock()
	defer p.board.lock.RUnlock()
	return p.reporting
}

// ReportedState returns the last PinStateResponse for the pin.
func (p *Pin) ReportedState() (st PinState, ok bool) {
	st, ok = p.state.Load().(PinState)
	return
}

// OnChange registers a callback for value updates from the board.
func (p *Pin) OnChange(fn ChangeFunc) *Pin {
	p.board.cbLock.Lock()
	p.onChange = append(p.onChange, fn)
	p.board.cbLock.Unlock()
	return p
}

// Read returns the last value latched, it never talks to the board.
func (p *Pin) Read() (Reading, error) {
	if p.disabled {
		return Reading{}, &ModeError{Pin: p, Mode: ModeUnavailable, Op: "read"}
	}
	return p.reading(), nil
}

// SetMode changes the mode of the pin. INPUT enables reporting of the
// port and ANALOG enables reporting of the analog channel.
func (p *Pin) SetMode(mode Mode) error {
	p.board.lock.Lock()
	defer p.board.lock.Unlock()
	return p.setModeLocked(mode)
}

func (p *Pin) setModeLocked(mode Mode) error {
	if p.disabled {
		return &DefinitionError{Spec: p.String(), Reason: "pin is disabled"}
	}
	if !p.Supports(mode) {
		return &DefinitionError{Spec: p.String(), Reason: fmt.Sprintf("%s mode not supported", mode)}
	}
	if err := p.board.sendOpen(setPinModeMessage(p.Number, mode)); err != nil {
		return err
	}
	prev := p.mode
	p.mode = mode
	if prev != mode {
		// a value cached under another mode means nothing in the new one.
		p.value.Store(Reading{})
	}
	switch {
	case mode == ModeInput && p.port != nil:
		return p.port.setReportingLocked(true)
	case mode == ModeAnalog:
		return p.setAnalogReportingLocked(true)
	case prev == ModeAnalog && p.reporting:
		return p.setAnalogReportingLocked(false)
	}
	return nil
}

// Write sets the output value. OUTPUT pins take 0 or non-zero, PWM pins
// a duty cycle in [0, 1] and SERVO pins an angle in degrees. Writing the
// cached value again sends nothing.
func (p *Pin) Write(v float64) error {
	p.board.lock.Lock()
	defer p.board.lock.Unlock()
	return p.writeLocked(v, false)
}

func (p *Pin) writeLocked(v float64, force bool) error {
	if math.IsNaN(v) {
		return ErrValueOutOfRange
	}
	switch p.mode {
	case ModeOutput:
		if v != 0 {
			v = 1
		}
	case ModePWM:
		v = clamp01(v)
	case ModeServo:
	default:
		return &ModeError{Pin: p, Mode: p.mode, Op: "write"}
	}
	prev := p.reading()
	if !force && prev.Valid && prev.Value == v {
		return nil
	}
	p.value.Store(Reading{Value: v, Valid: true, At: time.Now()})
	msg, err := p.outputMessage(v)
	if err == nil {
		err = p.board.sendOpen(msg)
	}
	if err != nil {
		p.value.Store(prev)
	}
	return err
}

func (p *Pin) outputMessage(v float64) ([]byte, error) {
	switch p.mode {
	case ModeOutput:
		if p.port == nil {
			return setDigitalPinValueMessage(p.Number, v != 0), nil
		}
		return digitalMessage(p.port.Number, p.port.maskLocked())
	case ModePWM:
		res := p.board.layout.Resolution(p.Number, ModePWM)
		if res <= 0 {
			res = defaultResolutions[ModePWM]
		}
		return analogMessage(p.Number, int(math.Round(v*float64(int(1)<<uint(res)-1))))
	default:
		return analogMessage(p.Number, int(math.Round(v)))
	}
}

// EnableReporting asks the board to report the value of an input pin.
// For digital pins the whole port is enabled.
func (p *Pin) EnableReporting() error {
	return p.switchReporting(true)
}

// DisableReporting stops reporting of the pin.
func (p *Pin) DisableReporting() error {
	return p.switchReporting(false)
}

func (p *Pin) switchReporting(on bool) error {
	p.board.lock.Lock()
	defer p.board.lock.Unlock()
	op := "disable reporting"
	if on {
		op = "enable reporting"
	}
	switch {
	case p.mode == ModeAnalog:
		return p.setAnalogReportingLocked(on)
	case p.mode == ModeInput && p.port != nil:
		return p.port.setReportingLocked(on)
	}
	return &ModeError{Pin: p, Mode: p.mode, Op: op}
}

func (p *Pin) setAnalogReportingLocked(on bool) error {
	if err := p.board.sendOpen(reportAnalogMessage(p.channel, on)); err != nil {
		return err
	}
	p.reporting = on
	return nil
}

// isHigh reports whether the cached output value is exactly 1.
func (p *Pin) isHigh() bool {
	r := p.reading()
	return r.Valid && r.Value == 1
}

func (p *Pin) reading() Reading {
	r, _ := p.value.Load().(Reading)
	return r
}

// latch stores a value from the board.
func (p *Pin) latch(v float64) (Reading, bool) {
	prev := p.reading()
	r := Reading{Value: v, Valid: true, At: time.Now()}
	p.value.Store(r)
	return r, !prev.Valid || prev.Value != v
}
