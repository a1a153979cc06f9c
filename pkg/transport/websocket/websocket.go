// Package websocket provides a firmata.Transport over a WebSocket, e.g.
// a board behind a WiFi bridge or a serial relay.
// Each binary message carries a chunk of the Firmata byte stream.
package websocket

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/firmata.go/pkg/firmata"
)

// DefaultReadTimeout is how long Read waits for a message.
const DefaultReadTimeout = 10 * time.Millisecond

// Transport is a firmata.Transport on a WebSocket connection.
type Transport struct {
	ReadTimeout time.Duration

	conn    *websocket.Conn
	msgCh   chan []byte
	errCh   chan error
	pending []byte

	closeCh   chan struct{}
	closeOnce sync.Once
	readErr   error
}

// Dial connects to a WebSocket server.
func Dial(url, origin string) (*Transport, error) {
	if origin == "" {
		origin = "http://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	glog.Infof("connected %s", url)
	return New(conn), nil
}

// New wraps an established connection.
func New(conn *websocket.Conn) *Transport {
	conn.PayloadType = websocket.BinaryFrame
	t := &Transport{
		ReadTimeout: DefaultReadTimeout,
		conn:        conn,
		msgCh:       make(chan []byte, 16),
		errCh:       make(chan error, 1),
		closeCh:     make(chan struct{}),
	}
	go t.receive()
	return t
}

// Handler serves incoming connections as Transports. fn owns the
// Transport, the connection ends when fn returns.
func Handler(fn func(*Transport)) websocket.Handler {
	return func(conn *websocket.Conn) {
		t := New(conn)
		defer t.Close()
		fn(t)
	}
}

func (t *Transport) receive() {
	for {
		var msg []byte
		if err := websocket.Message.Receive(t.conn, &msg); err != nil {
			t.errCh <- err
			return
		}
		if len(msg) == 0 {
			continue
		}
		select {
		case t.msgCh <- msg:
		case <-t.closeCh:
			return
		}
	}
}

// Read implements io.Reader. It returns 0 bytes when no message arrives
// within ReadTimeout.
func (t *Transport) Read(p []byte) (int, error) {
	if len(t.pending) == 0 {
		if t.readErr != nil {
			return t.drain(p)
		}
		timeout := t.ReadTimeout
		if timeout <= 0 {
			timeout = DefaultReadTimeout
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case t.pending = <-t.msgCh:
		case err := <-t.errCh:
			t.readErr = t.mapErr(err)
			return t.drain(p)
		case <-t.closeCh:
			return 0, firmata.ErrTransportClosed
		case <-timer.C:
			return 0, nil
		}
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// drain returns messages received before the receive error, then the
// error. receive queues every message before reporting its error.
func (t *Transport) drain(p []byte) (int, error) {
	select {
	case t.pending = <-t.msgCh:
	default:
		return 0, t.readErr
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// Write implements io.Writer, p is sent as one message.
func (t *Transport) Write(p []byte) (int, error) {
	select {
	case <-t.closeCh:
		return 0, firmata.ErrTransportClosed
	default:
	}
	if err := websocket.Message.Send(t.conn, p); err != nil {
		return 0, t.mapErr(err)
	}
	return len(p), nil
}

// Close implements io.Closer.
func (t *Transport) Close() (err error) {
	t.closeOnce.Do(func() {
		close(t.closeCh)
		err = t.conn.Close()
	})
	return
}

func (t *Transport) mapErr(err error) error {
	select {
	case <-t.closeCh:
		return firmata.ErrTransportClosed
	default:
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("websocket: %v: %w", err, firmata.ErrTransportClosed)
	}
	return fmt.Errorf("websocket: %w", err)
}
