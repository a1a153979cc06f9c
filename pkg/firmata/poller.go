package firmata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Poller keeps reading from the board in the background.
// It implements framework.Runnable.
type Poller struct {
	Board    *Board
	IdleWait time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	initOnce sync.Once
}

// NewPoller creates a Poller for the board.
func NewPoller(b *Board) *Poller {
	return &Poller{Board: b, IdleWait: b.conf.IdleWait}
}

// Stop requests Run to return.
func (p *Poller) Stop() {
	p.init()
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Run implements framework.Runnable. It returns nil when stopped,
// cancelled or the transport is closed, and any other read error.
func (p *Poller) Run(ctx context.Context) error {
	p.init()
	idle := p.IdleWait
	if idle <= 0 {
		idle = DefaultIdleWait
	}
	glog.V(4).Infof("%s: poller started", p.Board.Name)
	defer glog.V(4).Infof("%s: poller stopped", p.Board.Name)
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		default:
		}
		n, err := p.Board.Iterate()
		if err != nil {
			if errors.Is(err, ErrClosed) || errors.Is(err, ErrTransportClosed) {
				return nil
			}
			glog.Errorf("%s: %v", p.Board.Name, err)
			p.Board.setErr(err)
			return err
		}
		if n > 0 {
			continue
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(idle)
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) init() {
	p.initOnce.Do(func() { p.stopCh = make(chan struct{}) })
}
