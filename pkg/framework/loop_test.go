package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	n int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

type otherMsg struct{}

func (m *otherMsg) NewMessage() Message { return &otherMsg{} }

func collect(into *[]int) Controller {
	return ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if m, ok := mctx.CurrentMessage().(*testMsg); ok {
				mctx.MessageTaken()
				*into = append(*into, m.n)
			}
		}))
		return nil
	})
}

func TestLoopIterationOrder(t *testing.T) {
	var levels []int
	l := NewLoop()
	for _, lv := range []int{PrLvIdle, PrLvTop, PrLvLow, PrLvControl} {
		lv := lv
		l.AddController(lv, ControlFunc(func(cc ControlContext) error {
			require.Equal(t, lv, cc.PriorityLevel())
			levels = append(levels, lv)
			return nil
		}))
	}
	l.RunIteration(context.Background())
	require.Equal(t, []int{PrLvTop, PrLvControl, PrLvLow, PrLvIdle}, levels)
}

func TestLoopMessages(t *testing.T) {
	var got []int
	l := NewLoop()
	l.AddController(PrLvControl, collect(&got))
	l.PostMessage(&testMsg{n: 1})
	l.PostMessage(&otherMsg{})
	l.PostMessage(&testMsg{n: 2})
	l.RunIteration(context.Background())
	require.Equal(t, []int{1, 2}, got)

	// the untaken message is carried over, ahead of new ones.
	var order []Message
	l.AddController(PrLvIdle, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			order = append(order, mctx.CurrentMessage())
		}))
		return nil
	}))
	l.PostMessage(&otherMsg{})
	l.RunIteration(context.Background())
	require.Len(t, order, 2)
	require.Equal(t, []int{1, 2}, got)
}

func TestLoopStopProcessing(t *testing.T) {
	var seen int
	l := NewLoop()
	l.AddController(PrLvTop, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			seen++
			mctx.StopProcessing()
		}))
		return nil
	}))
	var got []int
	l.AddController(PrLvLow, collect(&got))
	l.PostMessage(&testMsg{n: 1})
	l.PostMessage(&testMsg{n: 2})
	l.RunIteration(context.Background())
	require.Equal(t, 1, seen)
	require.Equal(t, []int{1, 2}, got)
}

func TestDropUnhandled(t *testing.T) {
	var count int
	l := NewLoop().Add(DropUnhandled{})
	l.PostMessage(&otherMsg{})
	l.RunIteration(context.Background())
	l.AddController(PrLvTop, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(MessageProcessingContext) {
			count++
		}))
		return nil
	}))
	l.RunIteration(context.Background())
	require.Zero(t, count)
}

type postRunner struct{}

func (postRunner) Run(ctx context.Context) error {
	loopCtl := LoopCtlFrom(ctx)
	loopCtl.PostMessage(&testMsg{n: 42})
	loopCtl.TriggerNext()
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRun(t *testing.T) {
	gotCh := make(chan int, 1)
	l := NewLoop()
	l.Interval = time.Hour
	l.AddRunnable(postRunner{})
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if m, ok := mctx.CurrentMessage().(*testMsg); ok {
				mctx.MessageTaken()
				gotCh <- m.n
			}
		}))
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	select {
	case n := <-gotCh:
		require.Equal(t, 42, n)
	case <-time.After(2 * time.Second):
		t.Fatal("message not processed")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

type failRunner struct{ err error }

func (r failRunner) Run(context.Context) error { return r.err }

func TestLoopRunnerFailure(t *testing.T) {
	errFail := errors.New("fail")
	l := NewLoop().AddRunnable(failRunner{err: errFail}, postRunner{})
	err := l.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fail")
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, errors.New("a"))
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "Multiple errors:\na\nb")
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.ch
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, c.closed)

	c = &testCloser{ch: make(chan struct{})}
	err = RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	require.True(t, c.closed)
}

type testCloser struct {
	ch     chan struct{}
	closed bool
}

func (c *testCloser) Close() error {
	c.closed = true
	close(c.ch)
	return nil
}
