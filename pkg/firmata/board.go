package firmata

import (
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/firmata.go/pkg/framework"
)

// Transport is the byte stream to the board.
// Read must return 0 bytes without error when nothing is available
// within its read timeout. Once closed on purpose, Read and Write should
// return errors wrapping ErrTransportClosed.
type Transport interface {
	io.ReadWriteCloser
}

// SysexHandler handles a custom sysex command. A returned error drops
// the frame.
type SysexHandler func(b *Board, data []byte) error

// Config defines how a Board is set up.
type Config struct {
	// Name is used in logs, usually the port name.
	Name string
	// Layout skips capability negotiation when present.
	Layout *Layout
	// SettleTime is waited before talking to the board, boards with
	// auto reset need ~2s to boot.
	SettleTime time.Duration
	// NegotiateTimeout bounds waiting for the capability response.
	NegotiateTimeout time.Duration
	// IdleWait is the sleep when no bytes are available.
	IdleWait time.Duration
	// MaxSysexSize limits buffered sysex payload.
	MaxSysexSize int
	// SysexHandlers registers handlers for extra sysex commands.
	SysexHandlers map[byte]SysexHandler
}

// Defaults of Config.
const (
	DefaultSettleTime       = 2 * time.Second
	DefaultNegotiateTimeout = 5 * time.Second
	DefaultIdleWait         = time.Millisecond
)

// DefaultConfig returns the config for a typical Arduino.
func DefaultConfig() Config {
	return Config{
		Name:             "Board",
		SettleTime:       DefaultSettleTime,
		NegotiateTimeout: DefaultNegotiateTimeout,
		IdleWait:         DefaultIdleWait,
		MaxSysexSize:     DefaultMaxSysexSize,
	}
}

// Firmware is reported by the board.
type Firmware struct {
	Name  string
	Major int
	Minor int
}

// String implements fmt.Stringer.
func (f Firmware) String() string {
	return fmt.Sprintf("%s %d.%d", f.Name, f.Major, f.Minor)
}

// Version is the protocol version reported by the board.
type Version struct {
	Major int
	Minor int
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ChangeFunc is notified after the value of an input pin is updated.
type ChangeFunc func(pin *Pin, r Reading)

// StringFunc receives string data sent by the board.
type StringFunc func(b *Board, s string)

type negotiateState int

const (
	negotiateIdle negotiateState = iota
	negotiateQuerySent
	negotiateLayoutReceived
	negotiateConfigured
)

// Board is the host side state of a Firmata board.
type Board struct {
	Name string

	conn   Transport
	conf   Config
	table  *CommandTable
	parser *Parser
	rbuf   [64]byte
	sysex  map[byte]SysexHandler

	layout *Layout
	pins   []*Pin
	ports  []*Port
	analog []*Pin

	negotiation negotiateState
	candidate   *Layout

	// lock guards modes, taken and reporting flags.
	lock     sync.RWMutex
	sendLock sync.Mutex
	readLock sync.Mutex
	cbLock   sync.RWMutex
	closed   int32

	firmware atomic.Value
	version  atomic.Value
	err      atomic.Value

	onChange []ChangeFunc
	onString []StringFunc
}

type errBox struct{ err error }

// New creates a Board on an opened transport. Without a layout in conf,
// the layout is negotiated with the board. The transport is not closed
// when New fails.
func New(conn Transport, conf Config) (*Board, error) {
	if conf.Name == "" {
		conf.Name = "Board"
	}
	if conf.NegotiateTimeout <= 0 {
		conf.NegotiateTimeout = DefaultNegotiateTimeout
	}
	if conf.IdleWait <= 0 {
		conf.IdleWait = DefaultIdleWait
	}
	b := &Board{
		Name:  conf.Name,
		conn:  conn,
		conf:  conf,
		table: DefaultCommandTable(),
		sysex: make(map[byte]SysexHandler),
	}
	for cmd, h := range conf.SysexHandlers {
		b.sysex[cmd&0x7f] = h
		b.table.RegisterSysex(cmd, HandleCustomSysex)
	}
	b.parser = NewParser(b.table)
	b.parser.MaxSysexSize = conf.MaxSysexSize

	if conf.SettleTime > 0 {
		time.Sleep(conf.SettleTime)
	}

	layout := conf.Layout
	if layout == nil {
		l, err := b.negotiate()
		if err != nil {
			return nil, err
		}
		layout = l
	}
	if err := layout.Validate(); err != nil {
		return nil, &DefinitionError{Spec: b.Name, Reason: err.Error()}
	}
	b.setup(layout)
	glog.Infof("%s: %d pins, %d ports, %d analog", b.Name, len(b.pins), len(b.ports), len(b.analog))
	return b, nil
}

func (b *Board) negotiate() (*Layout, error) {
	b.table.RegisterSysex(CapabilityResponse, HandleCapabilityResponse)
	defer b.table.UnregisterSysex(CapabilityResponse)

	msg, _ := sysexMessage(CapabilityQuery, nil)
	if err := b.send(msg); err != nil {
		return nil, err
	}
	b.lock.Lock()
	b.negotiation = negotiateQuerySent
	b.lock.Unlock()
	glog.V(2).Infof("%s: capability query sent", b.Name)

	deadline := time.Now().Add(b.conf.NegotiateTimeout)
	for {
		n, err := b.Iterate()
		if err != nil {
			return nil, err
		}
		b.lock.RLock()
		l := b.candidate
		b.lock.RUnlock()
		if l != nil {
			return l, nil
		}
		if !time.Now().Before(deadline) {
			glog.Warningf("%s: no capability response in %s", b.Name, b.conf.NegotiateTimeout)
			return nil, ErrNegotiationFailed
		}
		if n == 0 {
			time.Sleep(b.conf.IdleWait)
		}
	}
}

func (b *Board) setup(l *Layout) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.layout = l
	b.pins = make([]*Pin, l.PinCount())
	for n := range b.pins {
		pin := &Pin{
			Number:   n,
			board:    b,
			channel:  l.AnalogChannel(n),
			modes:    l.SupportedModes(n),
			disabled: l.IsDisabled(n),
			mode:     ModeUnset,
		}
		if pin.disabled {
			pin.mode = ModeUnavailable
		}
		pin.value.Store(Reading{})
		b.pins[n] = pin
	}
	if digital := l.Digital(); len(digital) > 0 {
		b.ports = make([]*Port, digital[len(digital)-1]/8+1)
		for n := range b.ports {
			b.ports[n] = &Port{Number: n, board: b}
		}
		for _, n := range digital {
			port := b.ports[n/8]
			port.pins[n%8] = b.pins[n]
			b.pins[n].port = port
		}
	}
	b.analog = make([]*Pin, len(l.Analog))
	for ch, n := range l.Analog {
		b.analog[ch] = b.pins[n]
	}
	b.negotiation = negotiateConfigured
}

// Layout returns the layout in use.
func (b *Board) Layout() *Layout {
	return b.layout
}

// Pins returns all pins indexed by pin number.
func (b *Board) Pins() []*Pin {
	return b.pins
}

// Pin returns the pin by number or nil.
func (b *Board) Pin(n int) *Pin {
	if n < 0 || n >= len(b.pins) {
		return nil
	}
	return b.pins[n]
}

// AnalogPin returns the pin of an analog channel or nil.
func (b *Board) AnalogPin(channel int) *Pin {
	if channel < 0 || channel >= len(b.analog) {
		return nil
	}
	return b.analog[channel]
}

// Ports returns the digital ports.
func (b *Board) Ports() []*Port {
	return b.ports
}

// Port returns the port by number or nil.
func (b *Board) Port(n int) *Port {
	if n < 0 || n >= len(b.ports) {
		return nil
	}
	return b.ports[n]
}

// Firmware returns the firmware reported, ok is false before the report.
func (b *Board) Firmware() (fw Firmware, ok bool) {
	fw, ok = b.firmware.Load().(Firmware)
	return
}

// ProtocolVersion returns the protocol version reported.
func (b *Board) ProtocolVersion() (v Version, ok bool) {
	v, ok = b.version.Load().(Version)
	return
}

// Err returns the error which stopped the poller.
func (b *Board) Err() error {
	if box, ok := b.err.Load().(errBox); ok {
		return box.err
	}
	return nil
}

func (b *Board) setErr(err error) {
	b.err.Store(errBox{err: err})
}

// OnChange registers a callback for value updates of any pin.
func (b *Board) OnChange(fn ChangeFunc) *Board {
	b.cbLock.Lock()
	b.onChange = append(b.onChange, fn)
	b.cbLock.Unlock()
	return b
}

// OnString registers a callback for string data.
func (b *Board) OnString(fn StringFunc) *Board {
	b.cbLock.Lock()
	b.onString = append(b.onString, fn)
	b.cbLock.Unlock()
	return b
}

// String implements fmt.Stringer.
func (b *Board) String() string {
	return "Board " + b.Name
}

// IsClosed indicates Close has been called.
func (b *Board) IsClosed() bool {
	return atomic.LoadInt32(&b.closed) != 0
}

// Close reverts servo pins to output and closes the transport.
// Closing again is a no-op.
func (b *Board) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.IsClosed() {
		return nil
	}
	errs := &framework.AggregatedError{}
	for _, pin := range b.pins {
		if pin.mode == ModeServo {
			errs.Add(b.send(setPinModeMessage(pin.Number, ModeOutput)))
			pin.mode = ModeOutput
			pin.value.Store(Reading{})
		}
	}
	atomic.StoreInt32(&b.closed, 1)
	errs.Add(b.conn.Close())
	glog.Infof("%s: closed", b.Name)
	return errs.Aggregate()
}

// SendSysex sends a sysex message, data must be 7-bit.
func (b *Board) SendSysex(cmd byte, data []byte) error {
	msg, err := sysexMessage(cmd, data)
	if err != nil {
		return err
	}
	return b.sendOpen(msg)
}

// QueryFirmware asks the board to report its firmware.
func (b *Board) QueryFirmware() error {
	return b.SendSysex(ReportFirmware, nil)
}

// QueryPinState asks the board to report mode and state of a pin.
func (b *Board) QueryPinState(pin int) error {
	if b.Pin(pin) == nil {
		return &DefinitionError{Spec: fmt.Sprintf("%d", pin), Reason: "pin out of range"}
	}
	return b.SendSysex(PinStateQuery, []byte{byte(pin)})
}

// SetSamplingInterval sets how often the board reports analog values.
func (b *Board) SetSamplingInterval(d time.Duration) error {
	ms := d.Milliseconds()
	if ms > math.MaxInt32 {
		return ErrValueOutOfRange
	}
	data, err := appendTwoBytes(nil, int(ms))
	if err != nil {
		return err
	}
	return b.SendSysex(SamplingInterval, data)
}

// SystemReset resets the board firmware. Host side pin state is kept.
func (b *Board) SystemReset() error {
	return b.sendOpen([]byte{SystemReset})
}

// ServoSettings configures a servo pin.
type ServoSettings struct {
	MinPulse int
	MaxPulse int
	Angle    float64
}

// DefaultServoConfig is the pulse range of most hobby servos.
var DefaultServoConfig = ServoSettings{MinPulse: 544, MaxPulse: 2400}

// ServoConfig configures the pulse range of a pin, puts it in servo mode
// and writes the angle. It can be issued again, both messages are always
// sent.
func (b *Board) ServoConfig(n int, settings ServoSettings) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	pin := b.Pin(n)
	if pin == nil {
		return &DefinitionError{Spec: fmt.Sprintf("%d", n), Reason: "pin out of range"}
	}
	if pin.disabled {
		return &DefinitionError{Spec: pin.String(), Reason: "pin is disabled"}
	}
	if !pin.Supports(ModeServo) {
		return &DefinitionError{Spec: pin.String(), Reason: "servo not supported"}
	}
	msg, err := servoConfigMessage(n, settings.MinPulse, settings.MaxPulse)
	if err != nil {
		return err
	}
	if err = b.sendOpen(msg); err != nil {
		return err
	}
	pin.mode = ModeServo
	return pin.writeLocked(settings.Angle, true)
}

// Iterate reads the bytes available and dispatches complete frames.
// It returns the number of bytes read.
func (b *Board) Iterate() (int, error) {
	if b.IsClosed() {
		return 0, ErrClosed
	}
	b.readLock.Lock()
	defer b.readLock.Unlock()
	n, err := b.conn.Read(b.rbuf[:])
	for _, c := range b.rbuf[:n] {
		if f := b.parser.Parse(c); f != nil {
			b.dispatch(f)
		}
	}
	if err != nil {
		if b.IsClosed() {
			return n, ErrClosed
		}
		return n, fmt.Errorf("%s: read: %w", b.Name, err)
	}
	return n, nil
}

func (b *Board) sendOpen(msg []byte) error {
	if b.IsClosed() {
		return ErrClosed
	}
	return b.send(msg)
}

func (b *Board) send(msg []byte) error {
	b.sendLock.Lock()
	defer b.sendLock.Unlock()
	if glog.V(4) {
		glog.Infof("%s: send % x", b.Name, msg)
	}
	if _, err := b.conn.Write(msg); err != nil {
		return fmt.Errorf("%s: write: %w", b.Name, err)
	}
	return nil
}
