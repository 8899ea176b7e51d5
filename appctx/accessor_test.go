package appctx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fanmesh/config"
)

func TestGet_ConcurrentFirstAccess(t *testing.T) {
	reset()
	t.Cleanup(reset)

	const callers = 32

	var wg sync.WaitGroup
	contexts := make([]*Context, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contexts[i], errs[i] = Get(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		// Every caller receives the same instance.
		assert.Same(t, contexts[0], contexts[i])
	}

	// Exactly one initialization sequence ran despite the race.
	assert.Equal(t, int64(1), InitCount())
}

func TestGet_Idempotent(t *testing.T) {
	reset()
	t.Cleanup(reset)

	first, err := Get(context.Background())
	require.NoError(t, err)
	second, err := GetBlocking()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), InitCount())
}

func TestGet_FailedInitIsRetryable(t *testing.T) {
	reset()
	t.Cleanup(reset)

	attempts := 0
	Configure(func() (*config.Settings, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("settings store unavailable")
		}
		return config.Default(), nil
	})

	_, err := Get(context.Background())
	var ierr *ContextInitializationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "settings", ierr.Step)

	// A later access retries and succeeds; no partially-ready context was
	// published in between.
	c, err := Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, int64(2), InitCount())
}

func TestGet_InvalidSettings(t *testing.T) {
	reset()
	t.Cleanup(reset)

	Configure(func() (*config.Settings, error) {
		s := config.Default()
		s.Telemetry.Exporter = "carrier-pigeon"
		return s, nil
	})

	_, err := Get(context.Background())
	var ierr *ContextInitializationError
	require.ErrorAs(t, err, &ierr)
}

func TestGet_AfterShutdown(t *testing.T) {
	reset()
	t.Cleanup(reset)

	c, err := Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, Shutdown(context.Background()))
	assert.Equal(t, StateClosed, c.State())

	_, err = Get(context.Background())
	var cerr *ContextClosedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StateClosed, cerr.State)

	_, err = GetBlocking()
	require.ErrorAs(t, err, &cerr)
}

func TestShutdown_BeforeAnyAccess(t *testing.T) {
	reset()
	t.Cleanup(reset)

	require.NoError(t, Shutdown(context.Background()))
	_, err := Get(context.Background())
	var cerr *ContextClosedError
	assert.ErrorAs(t, err, &cerr)
}

func TestGet_CancelledWaiter(t *testing.T) {
	reset()
	t.Cleanup(reset)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled caller never observes a half-initialized context: it
	// either gets the published instance or its own ctx error.
	c, err := Get(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	} else {
		assert.Equal(t, StateReady, c.State())
	}
}
