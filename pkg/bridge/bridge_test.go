package bridge

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/firmata.go/pkg/firmata"
	"github.com/robotalks/firmata.go/pkg/framework"
)

type testTransport struct {
	lock sync.Mutex
	in   bytes.Buffer
	out  bytes.Buffer
}

func (s *testTransport) Read(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.in.Len() == 0 {
		return 0, nil
	}
	return s.in.Read(p)
}

func (s *testTransport) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.out.Write(p)
}

func (s *testTransport) Close() error { return nil }

func (s *testTransport) written() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := append([]byte{}, s.out.Bytes()...)
	s.out.Reset()
	return p
}

type publication struct {
	topic   string
	payload []byte
	retain  bool
}

type testPubSub struct {
	lock      sync.Mutex
	published []publication
	handlers  map[string]func(string, []byte)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (s *testPubSub) Publish(topic string, payload []byte, retain bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.published = append(s.published, publication{topic: topic, payload: payload, retain: retain})
	return nil
}

func (s *testPubSub) Subscribe(filter string, handler func(string, []byte)) (io.Closer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string]func(string, []byte))
	}
	s.handlers[filter] = handler
	return closerFunc(func() error {
		s.lock.Lock()
		delete(s.handlers, filter)
		s.lock.Unlock()
		return nil
	}), nil
}

func (s *testPubSub) deliver(t *testing.T, topic, payload string) {
	s.lock.Lock()
	h := s.handlers["uno/cmd/+"]
	s.lock.Unlock()
	require.NotNil(t, h)
	h(topic, []byte(payload))
}

// take returns and clears what has been published.
func (s *testPubSub) take() []publication {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := s.published
	s.published = nil
	return p
}

func decode(t *testing.T, p publication) map[string]*structpb.Value {
	ev, err := DecodeEvent(p.payload)
	require.NoError(t, err)
	return ev.Fields
}

func newTestBridge(t *testing.T) (*Bridge, *framework.Loop, *testTransport, *testPubSub) {
	conn := &testTransport{}
	board, err := firmata.New(conn, firmata.Config{Name: "uno", Layout: firmata.Arduino.Layout()})
	require.NoError(t, err)
	ps := &testPubSub{}
	br := New("uno", board, ps)
	loop := framework.NewLoop().Add(br)
	require.NoError(t, br.Start())
	return br, loop, conn, ps
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand(OpWrite, []byte(`{"pin": 13, "value": 1}`))
	require.NoError(t, err)
	require.Equal(t, 13.0, cmd.Args.Fields["pin"].GetNumberValue())

	cmd, err = DecodeCommand(OpQuery, nil)
	require.NoError(t, err)
	require.Empty(t, cmd.Args.Fields)

	_, err = DecodeCommand(OpWrite, []byte(`{"pin":`))
	require.Error(t, err)
}

func TestBridgeStartStop(t *testing.T) {
	br, _, _, ps := newTestBridge(t)
	published := ps.take()
	require.Len(t, published, 2)
	require.Equal(t, "uno/info", published[0].topic)
	require.True(t, published[0].retain)
	info := decode(t, published[0])
	require.Equal(t, "uno", info["name"].GetStringValue())
	require.Equal(t, 20.0, info["pins"].GetNumberValue())
	require.Len(t, info["layout"].GetListValue().GetValues(), 20)
	require.Equal(t, publication{topic: "uno/status", payload: StatusOnline, retain: true}, published[1])

	require.NoError(t, br.Stop())
	require.Equal(t, []publication{{topic: "uno/status", payload: StatusOffline, retain: true}}, ps.take())
	require.Empty(t, ps.handlers)
}

func TestBridgeCommands(t *testing.T) {
	_, loop, conn, ps := newTestBridge(t)
	ps.take()

	ps.deliver(t, "uno/cmd/pin", `{"spec": "d:13:o"}`)
	ps.deliver(t, "uno/cmd/write", `{"pin": 13, "value": 1}`)
	loop.RunOnce(context.Background())
	require.Equal(t, []byte{firmata.SetPinMode, 13, 1, firmata.DigitalMessage | 1, 0x20, 0}, conn.written())

	published := ps.take()
	require.Len(t, published, 4)
	require.Equal(t, "uno/result", published[0].topic)
	require.True(t, decode(t, published[0])["ok"].GetBoolValue())
	require.Equal(t, "uno/pins/13", published[1].topic)
	require.Equal(t, "OUTPUT", decode(t, published[1])["mode"].GetStringValue())
	require.Equal(t, "uno/result", published[2].topic)
	require.Equal(t, "write", decode(t, published[2])["op"].GetStringValue())
	ev := decode(t, published[3])
	require.Equal(t, 1.0, ev["value"].GetNumberValue())
	require.NotEmpty(t, ev["at"].GetStringValue())
}

func TestBridgeCommandErrors(t *testing.T) {
	_, loop, conn, ps := newTestBridge(t)
	ps.take()

	ps.deliver(t, "uno/cmd/write", `{"pin": 99, "value": 1}`)
	ps.deliver(t, "uno/cmd/write", `{"pin": 13, "value": 1}`)
	ps.deliver(t, "uno/cmd/explode", `{}`)
	ps.deliver(t, "uno/cmd/mode", `not json`)
	loop.RunOnce(context.Background())
	require.Empty(t, conn.written())

	published := ps.take()
	require.Len(t, published, 4)
	for _, p := range published {
		require.Equal(t, "uno/result", p.topic)
		ev := decode(t, p)
		require.False(t, ev["ok"].GetBoolValue())
		require.NotEmpty(t, ev["error"].GetStringValue())
	}
	require.Equal(t, "explode", decode(t, published[2])["op"].GetStringValue())
}

func TestBridgeCommandsRequireTakenPin(t *testing.T) {
	_, loop, conn, ps := newTestBridge(t)
	ps.take()

	ps.deliver(t, "uno/cmd/mode", `{"pin": 3, "mode": "pwm"}`)
	ps.deliver(t, "uno/cmd/report", `{"pin": 2}`)
	loop.RunOnce(context.Background())
	require.Empty(t, conn.written())
	published := ps.take()
	require.Len(t, published, 2)
	for _, p := range published {
		ev := decode(t, p)
		require.False(t, ev["ok"].GetBoolValue())
		require.Contains(t, ev["error"].GetStringValue(), "not taken")
	}

	ps.deliver(t, "uno/cmd/pin", `{"spec": "d:3:o"}`)
	ps.deliver(t, "uno/cmd/mode", `{"pin": 3, "mode": "pwm"}`)
	loop.RunOnce(context.Background())
	require.Equal(t, []byte{firmata.SetPinMode, 3, 1, firmata.SetPinMode, 3, 3}, conn.written())
	published = ps.take()
	require.Len(t, published, 4)
	require.True(t, decode(t, published[2])["ok"].GetBoolValue())
	require.Equal(t, "PWM", decode(t, published[3])["mode"].GetStringValue())
}

func TestBridgePinChanges(t *testing.T) {
	br, loop, conn, ps := newTestBridge(t)
	ps.take()

	ps.deliver(t, "uno/cmd/pin", `{"spec": "a:0"}`)
	loop.RunOnce(context.Background())
	require.Equal(t, []byte{firmata.SetPinMode, 14, 2, firmata.ReportAnalog, 1}, conn.written())
	ps.take()

	conn.lock.Lock()
	conn.in.Write([]byte{firmata.AnalogMessage, 127, 7})
	conn.lock.Unlock()
	n, err := br.Board.Iterate()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	loop.RunOnce(context.Background())

	published := ps.take()
	require.Len(t, published, 1)
	require.Equal(t, "uno/pins/14", published[0].topic)
	ev := decode(t, published[0])
	require.Equal(t, 1.0, ev["value"].GetNumberValue())
	require.Equal(t, "ANALOG", ev["mode"].GetStringValue())
}

func TestEventJSON(t *testing.T) {
	payload, err := EncodeEvent(ResultEvent(&Command{Op: OpQuery}, nil))
	require.NoError(t, err)
	s, err := EventJSON(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"op": "query", "ok": true}`, s)
}

func TestNewCommand(t *testing.T) {
	cmd, err := NewCommand(OpServo, map[string]interface{}{"pin": 9, "angle": 45.5, "min": 600})
	require.NoError(t, err)
	require.Equal(t, 9.0, cmd.Args.Fields["pin"].GetNumberValue())
	require.Equal(t, 45.5, cmd.Args.Fields["angle"].GetNumberValue())

	_, err = NewCommand(OpWrite, map[string]interface{}{"pin": uint8(1)})
	require.Error(t, err)
}
