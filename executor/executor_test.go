package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Submit(t *testing.T) {
	e := New(2)

	var ran bool
	err := e.Submit(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestExecutor_TaskError(t *testing.T) {
	e := New(1)
	sentinel := errors.New("boom")

	err := e.Submit(context.Background(), func(ctx context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestExecutor_BoundedConcurrency(t *testing.T) {
	e := New(2)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Submit(context.Background(), func(ctx context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestExecutor_SubmitAfterShutdown(t *testing.T) {
	e := New(1)
	require.NoError(t, e.Shutdown(context.Background()))

	err := e.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestExecutor_ShutdownWaitsForInflight(t *testing.T) {
	e := New(1)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	go func() {
		_ = e.Submit(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		})
	}()

	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	require.NoError(t, e.Shutdown(context.Background()))
	assert.True(t, finished.Load())
}

func TestExecutor_SubmitCancelledContext(t *testing.T) {
	e := New(1)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = e.Submit(context.Background(), func(ctx context.Context) error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Submit(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
}
