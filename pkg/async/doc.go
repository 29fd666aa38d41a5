// Package async provides safe concurrent execution primitives for background tasks.
//
// # Key Functions
//
// SafeGo runs a function in a goroutine with a timeout and panic recovery, logging
// failures through observability.Logger:
//
//	done := async.SafeGo(ctx, 30*time.Second, logger, "token sweep", func(ctx context.Context) error {
//		_, err := store.Sweep(ctx)
//		return err
//	})
//	<-done
//
// Batch processes a slice concurrently with bounded parallelism and collects every
// failure:
//
//	errs := async.Batch(ctx, uids, 8, 5*time.Second, func(ctx context.Context, uid string) error {
//		_, err := issuer.Issue(ctx, uid)
//		return err
//	})
package async
