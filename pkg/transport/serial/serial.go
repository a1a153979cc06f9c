// Package serial provides a firmata.Transport on a serial port.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

// Defaults for StandardFirmata.
const (
	DefaultBaudRate    = 57600
	DefaultReadTimeout = 10 * time.Millisecond
)

// Config defines the serial port.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultConfig returns the config for the port with default settings.
func DefaultConfig(port string) Config {
	return Config{
		Port:        port,
		BaudRate:    DefaultBaudRate,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Transport is a firmata.Transport on a serial port.
type Transport struct {
	name string
	port io.ReadWriteCloser

	lock   sync.RWMutex
	closed bool
}

// Open opens the serial port.
func Open(conf Config) (*Transport, error) {
	if conf.BaudRate == 0 {
		conf.BaudRate = DefaultBaudRate
	}
	if conf.ReadTimeout <= 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	port, err := serial.Open(conf.Port, &serial.Mode{
		BaudRate: conf.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Port, err)
	}
	if err := port.SetReadTimeout(conf.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout %s: %w", conf.Port, err)
	}
	glog.Infof("opened %s at %d baud", conf.Port, conf.BaudRate)
	return newTransport(conf.Port, port), nil
}

func newTransport(name string, port io.ReadWriteCloser) *Transport {
	return &Transport{name: name, port: port}
}

// Name returns the port name.
func (t *Transport) Name() string {
	return t.name
}

// Read implements io.Reader. It returns 0 bytes when the read times out.
func (t *Transport) Read(p []byte) (int, error) {
	if t.isClosed() {
		return 0, firmata.ErrTransportClosed
	}
	n, err := t.port.Read(p)
	return n, t.mapErr(err)
}

// Write implements io.Writer.
func (t *Transport) Write(p []byte) (int, error) {
	if t.isClosed() {
		return 0, firmata.ErrTransportClosed
	}
	n, err := t.port.Write(p)
	return n, t.mapErr(err)
}

// Close implements io.Closer.
func (t *Transport) Close() error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.closed = true
	t.lock.Unlock()
	glog.V(2).Infof("closing %s", t.name)
	return t.port.Close()
}

func (t *Transport) isClosed() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.closed
}

func (t *Transport) mapErr(err error) error {
	if err == nil {
		return nil
	}
	var portErr *serial.PortError
	if t.isClosed() || errors.Is(err, io.EOF) ||
		(errors.As(err, &portErr) && portErr.Code() == serial.PortClosed) {
		return fmt.Errorf("%s: %v: %w", t.name, err, firmata.ErrTransportClosed)
	}
	return fmt.Errorf("%s: %w", t.name, err)
}

// ListPorts lists the serial ports found.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
