package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopRunsByPriority(t *testing.T) {
	l := NewLoop()
	var order []int
	var seen []Message
	l.AddController(PrLvDispatch, ControlFunc(func(cc ControlContext) error {
		order = append(order, cc.PriorityLevel())
		seen = append(seen, cc.Messages()...)
		return nil
	}))
	l.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		order = append(order, cc.PriorityLevel())
		return errors.New("logged only")
	}))
	l.PostMessage("a")
	l.PostMessage(1)
	l.RunOnce(context.Background())
	require.Equal(t, []int{PrLvSense, PrLvDispatch}, order)
	require.Equal(t, []Message{"a", 1}, seen)

	l.RunOnce(context.Background())
	require.Len(t, seen, 2)
}

func TestLoopTriggeredByRunnable(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Hour
	done := make(chan Message, 1)
	l.AddController(PrLvDispatch, ControlFunc(func(cc ControlContext) error {
		for _, msg := range cc.Messages() {
			done <- msg
		}
		return nil
	}))
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		ctl := LoopCtlFrom(ctx)
		ctl.PostMessage("frame")
		ctl.TriggerNext()
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	select {
	case msg := <-done:
		require.Equal(t, "frame", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("loop not triggered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA := errors.New("a")
	r := NewRunner().Go(
		NamedRun("a", RunFunc(func(context.Context) error { return errA })),
		RunFunc(func(context.Context) error { return nil }),
		RunFunc(func(context.Context) error { return context.Canceled }),
	)
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errA))
	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 1)

	require.NoError(t, NewRunner().Go(RunFunc(func(context.Context) error { return nil })).Wait())
}

type blockingCloser struct {
	ch chan struct{}
}

func (c *blockingCloser) Close() error {
	select {
	case <-c.ch:
	default:
		close(c.ch)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &blockingCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.ch
		return io.EOF
	})
	require.Equal(t, context.Canceled, err)

	c = &blockingCloser{ch: make(chan struct{})}
	err = RunWithContextCloser(context.Background(), c, func() error { return io.EOF })
	require.Equal(t, io.EOF, err)
	_, open := <-c.ch
	require.False(t, open)
}
