package firmata

// BoardModel is the static description of a board.
// Analog pins are numbered right after the digital pins.
type BoardModel struct {
	Name     string
	Digital  int
	Analog   int
	PWM      []int
	Disabled []int
}

// Well-known board models. Disabled pins are Rx/Tx.
var (
	Arduino = BoardModel{
		Name:     "arduino",
		Digital:  14,
		Analog:   6,
		PWM:      []int{3, 5, 6, 9, 10, 11},
		Disabled: []int{0, 1},
	}
	ArduinoMega = BoardModel{
		Name:     "arduino_mega",
		Digital:  54,
		Analog:   16,
		PWM:      pinRange(2, 14),
		Disabled: []int{0, 1},
	}
	ArduinoDue = BoardModel{
		Name:     "arduino_due",
		Digital:  54,
		Analog:   12,
		PWM:      pinRange(2, 14),
		Disabled: []int{0, 1},
	}
	ArduinoNano = BoardModel{
		Name:     "arduino_nano",
		Digital:  14,
		Analog:   8,
		PWM:      []int{3, 5, 6, 9, 10, 11},
		Disabled: []int{0, 1},
	}
)

// BoardModels indexes the well-known models by name.
var BoardModels = map[string]BoardModel{
	Arduino.Name:     Arduino,
	ArduinoMega.Name: ArduinoMega,
	ArduinoDue.Name:  ArduinoDue,
	ArduinoNano.Name: ArduinoNano,
}

// Layout converts the model into a Layout.
// Every digital pin is assumed servo capable.
func (m BoardModel) Layout() *Layout {
	digital := pinRange(0, m.Digital)
	l := &Layout{
		DigitalInput:  digital,
		DigitalOutput: append([]int(nil), digital...),
		Analog:        pinRange(m.Digital, m.Digital+m.Analog),
		PWM:           append([]int(nil), m.PWM...),
		Servo:         append([]int(nil), digital...),
		Disabled:      append([]int(nil), m.Disabled...),
		Pins:          m.Digital + m.Analog,
	}
	return l
}

func pinRange(from, to int) []int {
	pins := make([]int, 0, to-from)
	for n := from; n < to; n++ {
		pins = append(pins, n)
	}
	return pins
}
