package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMessage struct {
	value int
}

func TestAggregatedError(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	errs := &AggregatedError{}
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	err := errs.Add(errA).Aggregate()
	require.Error(t, err)
	require.Equal(t, "a", err.Error())

	err = errs.Add(nil, errB).Aggregate()
	require.Equal(t, "multiple errors:\n  a\n  b", err.Error())
	require.True(t, errors.Is(err, errA))
	require.True(t, errors.Is(err, errB))
	require.False(t, errors.Is(err, context.Canceled))
}

func TestRunnerWait(t *testing.T) {
	failure := errors.New("failure")
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx)
	runner.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failing", RunFunc(func(context.Context) error {
			return failure
		})),
	)
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		require.Fail(t, "runner not done")
	}
	cancel()
	err := runner.Wait()
	require.True(t, errors.Is(err, failure))
	require.Contains(t, err.Error(), "failing: failure")
}

func TestLoopMessages(t *testing.T) {
	loop := NewLoop()
	var seen, taken []int
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.ProcessMessages(func(msg Message) bool {
			m := msg.(*testMessage)
			taken = append(taken, m.value)
			return m.value%2 == 0
		})
		return nil
	}))
	loop.AddController(PrLvActuate, ControlFunc(func(cc ControlContext) error {
		cc.ProcessMessages(func(msg Message) bool {
			seen = append(seen, msg.(*testMessage).value)
			return false
		})
		return nil
	}))
	for n := 1; n <= 4; n++ {
		loop.PostMessage(&testMessage{value: n})
	}
	loop.RunOnce(context.Background())
	require.Equal(t, []int{1, 2, 3, 4}, taken)
	require.Equal(t, []int{1, 3}, seen)

	loop.RunOnce(context.Background())
	require.Equal(t, []int{1, 3}, seen)
}

func TestLoopRun(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	iterations := make(chan uint64, 4)
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		iterations <- cc.Iteration()
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	loop.TriggerNext()
	require.Equal(t, uint64(1), <-iterations)
	loop.PostMessage(&testMessage{})
	require.Equal(t, uint64(2), <-iterations)
	cancel()
	require.NoError(t, <-errCh)
}

func TestLoopStopsWithRunnable(t *testing.T) {
	failure := errors.New("poller failed")
	loop := NewLoop()
	loop.AddRunnable(RunFunc(func(context.Context) error { return failure }))
	err := loop.Run(context.Background())
	require.True(t, errors.Is(err, failure))
}
