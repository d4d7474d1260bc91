package async

import (
	"context"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async executes a function asynchronously and returns a Future.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		// Early exit prevents goroutine leak when context is pre-canceled
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}

		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Group runs detached background tasks and lets the owner wait for them,
// typically on shutdown or in tests. The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn in its own goroutine. The task context keeps the values of ctx
// but not its cancellation, so a finished request does not abort it; timeout
// bounds the task instead when positive. onDone, if set, receives fn's error.
func (g *Group) Go(ctx context.Context, timeout time.Duration, fn func(context.Context) error, onDone func(error)) *Future[struct{}] {
	g.wg.Add(1)

	taskCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(taskCtx, timeout)
	}

	f := &Future[struct{}]{done: make(chan struct{})}
	go func() {
		defer g.wg.Done()
		defer close(f.done)
		defer cancel()

		f.err = fn(taskCtx)
		if onDone != nil {
			onDone(f.err)
		}
	}()
	return f
}

// Wait blocks until every task started with Go has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
