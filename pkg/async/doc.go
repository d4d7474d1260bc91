// Package async provides small helpers for running work in the background.
//
// Async starts a function in its own goroutine and returns a Future that can
// be awaited, awaited with a timeout or polled with IsComplete.
//
// Group runs fire-and-forget tasks that must outlive the request that started
// them. Each task gets a context detached from the caller's cancellation and
// bounded by its own timeout; Wait blocks until all tasks finish, which is
// what a graceful shutdown or a test needs:
//
//	var g async.Group
//	g.Go(r.Context(), 5*time.Second, func(ctx context.Context) error {
//	    return notifier.Notify(ctx, n)
//	}, func(err error) {
//	    if err != nil {
//	        log.Warn("notification failed", logger.Error(err))
//	    }
//	})
//	...
//	g.Wait()
package async
