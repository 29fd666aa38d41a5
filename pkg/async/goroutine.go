package async

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/handoff/pkg/observability"
)

// SafeGo executes fn in a goroutine with a timeout, panic recovery and error logging.
// The returned channel is closed once fn has returned.
//
// Use this instead of bare `go func()` for background work.
//
// Example:
//
//	async.SafeGo(ctx, 30*time.Second, logger, "token sweep", func(ctx context.Context) error {
//	    _, err := store.Sweep(ctx)
//	    return err
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, logger *observability.Logger, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithField("task", taskName)

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(log, "SafeGo")

		if err := fn(ctx); err != nil {
			log.WithError(err).Error("Background task failed")
		}
	}()

	return done
}

// SafeGoNoError is like SafeGo but for functions that don't return errors
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, logger *observability.Logger, taskName string, fn func(context.Context)) <-chan struct{} {
	return SafeGo(parentCtx, timeout, logger, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// ItemError ties a Batch failure to the item index that produced it
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Batch processes items concurrently with at most workers in flight, each call
// bounded by timeout. Every item runs; failures and panics are returned as
// *ItemError values in index order.
//
// Example:
//
//	errs := async.Batch(ctx, uids, 8, 5*time.Second, func(ctx context.Context, uid string) error {
//	    _, err := issuer.Issue(ctx, uid)
//	    return err
//	})
func Batch[T any](ctx context.Context, items []T, workers int, timeout time.Duration, fn func(context.Context, T) error) []error {
	if workers <= 0 {
		workers = 1
	}

	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			if err := runItem(ctx, timeout, item, fn); err != nil {
				errs[i] = &ItemError{Index: i, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := errs[:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func runItem[T any](parent context.Context, timeout time.Duration, item T, fn func(context.Context, T) error) (err error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = observability.PanicError(r)
		}
	}()

	return fn(ctx, item)
}
