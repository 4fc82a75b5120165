// Package poll waits for a remote condition with a fixed interval, bounded by
// an attempt limit, a timeout and the caller's context.
//
//	err := poll.Until(ctx, poll.Config{Interval: 100 * time.Millisecond, Timeout: time.Minute},
//	    func(ctx context.Context) (bool, error) { return store.BlobExists(ctx, c, name) },
//	    func() { fmt.Println("still waiting") })
package poll
