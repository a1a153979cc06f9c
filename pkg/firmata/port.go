package firmata

import "fmt"

// Port groups 8 digital pins, bit i of the mask is pin Number*8+i.
type Port struct {
	Number int

	board     *Board
	pins      [8]*Pin
	reporting bool
}

// String implements fmt.Stringer.
func (p *Port) String() string {
	return fmt.Sprintf("Digital port %d", p.Number)
}

// Pins returns the pins of the port, absent pins are nil.
func (p *Port) Pins() [8]*Pin {
	return p.pins
}

// IsReporting indicates the board reports the port.
func (p *Port) IsReporting() bool {
	p.board.lock.RLock()
	defer p.board.lock.RUnlock()
	return p.reporting
}

// EnableReporting asks the board to report the port.
func (p *Port) EnableReporting() error {
	p.board.lock.Lock()
	defer p.board.lock.Unlock()
	return p.setReportingLocked(true)
}

// DisableReporting stops reporting of the port.
func (p *Port) DisableReporting() error {
	p.board.lock.Lock()
	defer p.board.lock.Unlock()
	return p.setReportingLocked(false)
}

// Mask returns the mask sent for the output pins.
func (p *Port) Mask() int {
	p.board.lock.RLock()
	defer p.board.lock.RUnlock()
	return p.maskLocked()
}

func (p *Port) setReportingLocked(on bool) error {
	if err := p.board.sendOpen(reportDigitalMessage(p.Number, on)); err != nil {
		return err
	}
	p.reporting = on
	for _, pin := range p.pins {
		if pin == nil {
			continue
		}
		if !on {
			pin.reporting = false
		} else if pin.mode == ModeInput {
			pin.reporting = true
		}
	}
	return nil
}

func (p *Port) maskLocked() int {
	var mask int
	for bit, pin := range p.pins {
		if pin != nil && pin.mode == ModeOutput && pin.isHigh() {
			mask |= 1 << uint(bit)
		}
	}
	return mask
}
