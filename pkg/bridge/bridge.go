// Package bridge exposes a board on a publish/subscribe message bus.
//
// Under the board ID, the bridge publishes
//
//   info       board description (retained)
//   status     online/offline (retained)
//   pins/<n>   value changes of pins
//   string     string data sent by the firmware
//   result     result of each command
//
// and accepts commands on cmd/<op> with JSON object arguments. A pin must
// be taken with the pin command before write, mode or report accept it.
// Events are protobuf encoded google.protobuf.Struct values.
package bridge

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/firmata.go/pkg/firmata"
	"github.com/robotalks/firmata.go/pkg/framework"
)

// PubSub is the message bus, topics are relative.
type PubSub interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(filter string, handler func(topic string, payload []byte)) (io.Closer, error)
}

// Bridge connects a board to a PubSub.
type Bridge struct {
	ID     string
	Board  *firmata.Board
	PubSub PubSub

	loop     *framework.Loop
	subsLock sync.Mutex
	subs     []io.Closer
}

type commandMsg struct {
	cmd *Command
	err error
}

type pinChangeMsg struct {
	pin     *firmata.Pin
	reading firmata.Reading
}

type stringMsg struct {
	text string
	at   time.Time
}

// New creates a Bridge.
func New(id string, b *firmata.Board, ps PubSub) *Bridge {
	return &Bridge{ID: id, Board: b, PubSub: ps}
}

// AddToLoop implements framework.LoopAdder.
func (b *Bridge) AddToLoop(loop *framework.Loop) {
	b.loop = loop
	loop.AddRunnable(framework.NamedRun("poller", firmata.NewPoller(b.Board)))
	loop.AddController(framework.PrLvActuate, framework.ControlFunc(b.actuate))
	loop.AddController(framework.PrLvPublish, framework.ControlFunc(b.publish))
	b.Board.OnChange(func(pin *firmata.Pin, r firmata.Reading) {
		loop.PostMessage(&pinChangeMsg{pin: pin, reading: r})
	})
	b.Board.OnString(func(_ *firmata.Board, s string) {
		loop.PostMessage(&stringMsg{text: s, at: time.Now()})
	})
}

// Start subscribes to commands and announces the board.
func (b *Bridge) Start() error {
	sub, err := b.PubSub.Subscribe(b.ID+"/"+TopicCommand+"+", b.receive)
	if err != nil {
		return err
	}
	b.subsLock.Lock()
	b.subs = append(b.subs, sub)
	b.subsLock.Unlock()
	if err := b.send(TopicInfo, InfoEvent(b.Board), true); err != nil {
		return err
	}
	return b.PubSub.Publish(b.ID+"/"+TopicStatus, StatusOnline, true)
}

// Stop unsubscribes and announces the board is offline.
func (b *Bridge) Stop() error {
	b.subsLock.Lock()
	subs := b.subs
	b.subs = nil
	b.subsLock.Unlock()
	errs := &framework.AggregatedError{}
	for _, sub := range subs {
		errs.Add(sub.Close())
	}
	errs.Add(b.PubSub.Publish(b.ID+"/"+TopicStatus, StatusOffline, true))
	return errs.Aggregate()
}

func (b *Bridge) receive(topic string, payload []byte) {
	op := strings.TrimPrefix(topic, b.ID+"/"+TopicCommand)
	cmd, err := DecodeCommand(op, payload)
	if err != nil {
		cmd = &Command{Op: op}
	}
	b.post(&commandMsg{cmd: cmd, err: err})
}

func (b *Bridge) post(msg framework.Message) {
	if b.loop != nil {
		b.loop.PostMessage(msg)
	}
}

func (b *Bridge) actuate(cc framework.ControlContext) error {
	errs := &framework.AggregatedError{}
	cc.ProcessMessages(func(msg framework.Message) bool {
		m, ok := msg.(*commandMsg)
		if !ok {
			return false
		}
		err := m.err
		var pin *firmata.Pin
		if err == nil {
			pin, err = m.cmd.Apply(b.Board)
		}
		if err != nil {
			glog.Warningf("%s: %s: %v", b.ID, m.cmd.Op, err)
		}
		errs.Add(b.send(TopicResult, ResultEvent(m.cmd, err), false))
		if err == nil && pin != nil && m.cmd.Op != OpReport {
			if r, rerr := pin.Read(); rerr == nil {
				errs.Add(b.sendPin(pin, r))
			}
		}
		return true
	})
	return errs.Aggregate()
}

func (b *Bridge) publish(cc framework.ControlContext) error {
	errs := &framework.AggregatedError{}
	cc.ProcessMessages(func(msg framework.Message) bool {
		switch m := msg.(type) {
		case *pinChangeMsg:
			errs.Add(b.sendPin(m.pin, m.reading))
		case *stringMsg:
			errs.Add(b.send(TopicString, StringEvent(m.text, m.at), false))
		default:
			return false
		}
		return true
	})
	return errs.Aggregate()
}

func (b *Bridge) sendPin(pin *firmata.Pin, r firmata.Reading) error {
	payload, err := EncodeEvent(PinEvent(pin, r))
	if err != nil {
		return err
	}
	return b.PubSub.Publish(PinTopic(b.ID, pin.Number), payload, false)
}

func (b *Bridge) send(topic string, ev *structpb.Struct, retain bool) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.PubSub.Publish(b.ID+"/"+topic, payload, retain)
}
