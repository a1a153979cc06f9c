package firmata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runPoller(ctx context.Context, p *Poller) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	return errCh
}

func waitPoller(t *testing.T, errCh chan error) error {
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		require.Fail(t, "poller didn't stop")
	}
	return nil
}

func TestPollerReadsValues(t *testing.T) {
	b, conn := newTestBoard(t, nil)
	pin, err := b.GetPinString("a:1:i")
	require.NoError(t, err)

	changed := make(chan Reading, 1)
	pin.OnChange(func(_ *Pin, r Reading) { changed <- r })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runPoller(ctx, NewPoller(b))
	conn.inject(0xE1, 127, 7)
	select {
	case r := <-changed:
		require.Equal(t, 1.0, r.Value)
	case <-time.After(time.Second):
		require.Fail(t, "no value received")
	}
	cancel()
	require.NoError(t, waitPoller(t, errCh))
}

func TestPollerStop(t *testing.T) {
	b, _ := newTestBoard(t, nil)
	p := NewPoller(b)
	errCh := runPoller(context.Background(), p)
	p.Stop()
	p.Stop()
	require.NoError(t, waitPoller(t, errCh))
}

func TestPollerBoardClosed(t *testing.T) {
	b, _ := newTestBoard(t, nil)
	errCh := runPoller(context.Background(), NewPoller(b))
	require.NoError(t, b.Close())
	require.NoError(t, waitPoller(t, errCh))
	require.NoError(t, b.Err())
}

func TestPollerTransportClosed(t *testing.T) {
	b, conn := newTestBoard(t, nil)
	require.NoError(t, conn.Close())
	require.NoError(t, NewPoller(b).Run(context.Background()))
	require.NoError(t, b.Err())
}

func TestPollerTransportFailure(t *testing.T) {
	b, conn := newTestBoard(t, nil)
	failure := errors.New("device unplugged")
	conn.lock.Lock()
	conn.readErr = failure
	conn.lock.Unlock()
	err := NewPoller(b).Run(context.Background())
	require.True(t, errors.Is(err, failure))
	require.True(t, errors.Is(b.Err(), failure))
}
