package mcpclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_ConcurrencyOneSerializesCallers(t *testing.T) {
	q := NewQueue(1)
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive)
}

func TestQueue_ConcurrencyFiveAllowsParallelism(t *testing.T) {
	q := NewQueue(5)
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()
	assert.Greater(t, int(atomic.LoadInt32(&maxActive)), 1)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxActive)), 5)
}

func TestQueue_HasPendingRequests(t *testing.T) {
	q := NewQueue(1)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()

	<-started
	assert.True(t, q.HasPendingRequests())
	close(release)
}

func TestQueue_ClearFailsWaitingCallers(t *testing.T) {
	q := NewQueue(1)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		errCh <- err
	}()

	time.Sleep(5 * time.Millisecond)
	q.Clear()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("waiting caller was not released by Clear")
	}
	close(release)
}

func TestQueue_SubmitAfterClearFailsImmediately(t *testing.T) {
	q := NewQueue(1)
	q.Clear()

	_, err := q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		t.Fatal("fn should not run after Clear")
		return nil, nil
	})
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_ContextCancelWhileWaitingForSlot(t *testing.T) {
	q := NewQueue(1)
	release := make(chan struct{})
	go func() {
		_, _ = q.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		})
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
