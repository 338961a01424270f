package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterFetch(calls *int32) FetchFunc[int] {
	return func(ctx context.Context) (*int, error) {
		n := int(atomic.AddInt32(calls, 1))
		return &n, nil
	}
}

func receive(t *testing.T, ch <-chan Update[int]) Update[int] {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update[int]{}
	}
}

func TestPoller_FetchesImmediatelyAndOnInterval(t *testing.T) {
	var calls int32
	p := NewPoller("counter", 20*time.Millisecond, counterFetch(&calls))

	updates, unregister := p.Register()
	defer unregister()

	first := receive(t, updates)
	require.NoError(t, first.Err)
	require.NotNil(t, first.Value)
	assert.False(t, first.At.IsZero())

	second := receive(t, updates)
	require.NotNil(t, second.Value)
	assert.Greater(t, *second.Value, *first.Value)
}

func TestPoller_ErrorUpdate(t *testing.T) {
	boom := errors.New("boom")
	p := NewPoller("failing", time.Hour, func(ctx context.Context) (*int, error) {
		return nil, boom
	})

	updates, unregister := p.Register()
	defer unregister()

	u := receive(t, updates)
	assert.ErrorIs(t, u.Err, boom)
	assert.Nil(t, u.Value)
}

func TestPoller_Trigger(t *testing.T) {
	var calls int32
	p := NewPoller("counter", time.Hour, counterFetch(&calls))

	updates, unregister := p.Register()
	defer unregister()
	receive(t, updates)

	p.Trigger()
	u := receive(t, updates)
	require.NotNil(t, u.Value)
	assert.Equal(t, 2, *u.Value)
}

func TestPoller_StopsWithLastSubscriber(t *testing.T) {
	var calls int32
	p := NewPoller("counter", 10*time.Millisecond, counterFetch(&calls))

	a, unregisterA := p.Register()
	b, unregisterB := p.Register()
	receive(t, a)
	receive(t, b)

	unregisterA()
	unregisterA()
	for range a {
		// drain until closed
	}

	p.mu.RLock()
	assert.True(t, p.pollingActive)
	p.mu.RUnlock()

	unregisterB()
	p.mu.RLock()
	assert.False(t, p.pollingActive)
	p.mu.RUnlock()

	stopped := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&calls))

	c, unregisterC := p.Register()
	defer unregisterC()
	receive(t, c)
}

func TestPoller_StopCancelsFetch(t *testing.T) {
	started := make(chan struct{})
	p := NewPoller("slow", time.Hour, func(ctx context.Context) (*int, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, unregister := p.Register()
	<-started

	done := make(chan struct{})
	go func() {
		unregister()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the in-flight fetch")
	}
}
