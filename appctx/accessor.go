package appctx

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/fanmesh/config"
)

// accessor memoizes a single process-wide Context. It is an explicit
// once-with-retry primitive: exactly one initialization runs under
// concurrent first access, racers wait for the in-flight attempt, a failed
// attempt leaves the slot empty so a later access can retry, and after
// Shutdown every access fails with ContextClosedError (fail-hard; the
// accessor never transparently re-initializes).
type accessor struct {
	mu       sync.Mutex
	settings func() (*config.Settings, error)
	current  *Context
	pending  chan struct{}
	closed   bool

	initCount atomic.Int64
}

var global accessor

// Configure stores the settings provider used by lazy first access. Calling
// it after the context has been initialized has no effect on the live
// context.
func Configure(provider func() (*config.Settings, error)) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.settings = provider
}

// Get returns the process-wide execution context, initializing it on first
// access. Callers holding a deadline or cancellation pass it through ctx;
// racers blocked on an in-flight initialization honor that ctx while they
// wait. In Go both the cooperative and the blocking entry point collapse
// into this one function: goroutines waiting here never starve the
// initializer, which runs on the first caller's goroutine.
func Get(ctx context.Context) (*Context, error) {
	for {
		global.mu.Lock()

		if global.closed {
			global.mu.Unlock()
			return nil, &ContextClosedError{State: StateClosed, Op: "get"}
		}
		if global.current != nil {
			c := global.current
			global.mu.Unlock()
			return c, nil
		}
		if global.pending != nil {
			// Another caller is initializing; wait for it and re-read.
			pending := global.pending
			global.mu.Unlock()
			select {
			case <-pending:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		pending := make(chan struct{})
		global.pending = pending
		provider := global.settings
		global.mu.Unlock()

		c, err := runInit(ctx, provider)

		global.mu.Lock()
		closed := global.closed
		if err == nil && !closed {
			global.current = c
		}
		global.pending = nil
		global.mu.Unlock()
		close(pending)

		if err != nil {
			return nil, err
		}
		if closed {
			// Shutdown raced the tail of initialization; tear the orphan
			// down instead of publishing it.
			_ = c.Shutdown(ctx)
			return nil, &ContextClosedError{State: StateClosed, Op: "get"}
		}
		return c, nil
	}
}

// GetBlocking returns the process-wide execution context from call sites
// with no deadline to propagate.
func GetBlocking() (*Context, error) {
	return Get(context.Background())
}

func runInit(ctx context.Context, provider func() (*config.Settings, error)) (*Context, error) {
	global.initCount.Add(1)

	var settings *config.Settings
	if provider != nil {
		s, err := provider()
		if err != nil {
			return nil, &ContextInitializationError{Step: "settings", Err: err}
		}
		settings = s
	}
	return Initialize(ctx, settings)
}

// Shutdown tears down the process-wide context. Later accesses fail with
// ContextClosedError. Shutdown before any initialization just marks the
// accessor closed.
func Shutdown(ctx context.Context) error {
	global.mu.Lock()
	c := global.current
	global.current = nil
	global.closed = true
	global.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Shutdown(ctx)
}

// InitCount reports how many initialization sequences have run. Exactly one
// sequence runs under concurrent first access; the counter only grows past
// one when a failed attempt is retried.
func InitCount() int64 {
	return global.initCount.Load()
}

// reset clears the accessor. Test hook only.
func reset() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.settings = nil
	global.current = nil
	global.pending = nil
	global.closed = false
	global.initCount.Store(0)
}
