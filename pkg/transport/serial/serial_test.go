package serial

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

type testPort struct {
	in     bytes.Buffer
	out    bytes.Buffer
	err    error
	closes int
}

func (p *testPort) Read(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	if p.in.Len() == 0 {
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *testPort) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func (p *testPort) Close() error {
	p.closes++
	return nil
}

func TestTransport(t *testing.T) {
	port := &testPort{}
	tr := newTransport("/dev/ttyTEST", port)
	require.Equal(t, "/dev/ttyTEST", tr.Name())

	buf := make([]byte, 8)
	n, err := tr.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)

	port.in.Write([]byte{0xF9, 2, 5})
	n, err = tr.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xF9, 2, 5}, buf[:n])

	_, err = tr.Write([]byte{0xF0, 0x79, 0xF7})
	require.NoError(t, err)
	require.Equal(t, []byte{0xF0, 0x79, 0xF7}, port.out.Bytes())

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.Equal(t, 1, port.closes)
	_, err = tr.Read(buf)
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
	_, err = tr.Write(buf)
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
}

func TestTransportErrors(t *testing.T) {
	failure := errors.New("i/o error")
	port := &testPort{err: failure}
	tr := newTransport("COM3", port)
	_, err := tr.Read(make([]byte, 1))
	require.True(t, errors.Is(err, failure))
	require.False(t, errors.Is(err, firmata.ErrTransportClosed))

	port.err = io.EOF
	_, err = tr.Read(make([]byte, 1))
	require.True(t, errors.Is(err, firmata.ErrTransportClosed))
}

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig("/dev/ttyACM0")
	require.Equal(t, 57600, conf.BaudRate)
	require.Equal(t, DefaultReadTimeout, conf.ReadTimeout)
}
