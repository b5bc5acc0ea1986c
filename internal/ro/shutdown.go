// Package ro turns process signals into samber/ro streams so the server
// lifecycle can be driven reactively.
package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func orDefault(signals []os.Signal) []os.Signal {
	if len(signals) == 0 {
		return ShutdownSignals
	}
	return signals
}

// Signals returns an Observable that emits the first received signal and
// completes. Registration happens on subscribe and is undone on teardown.
// Cancelling the subscriber context ends the stream with the context error.
func Signals(signals ...os.Signal) ro.Observable[os.Signal] {
	signals = orDefault(signals)

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)

		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			}
		}()

		return func() {
			signal.Stop(ch)
		}
	})
}

// WaitForShutdown blocks until a signal arrives or ctx is done.
// Without explicit signals it waits for ShutdownSignals.
func WaitForShutdown(ctx context.Context, signals ...os.Signal) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, Signals(signals...))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// OnShutdown runs callback once when a signal arrives. Unsubscribing, or
// cancelling ctx, removes the registration.
func OnShutdown(ctx context.Context, callback func(os.Signal), signals ...os.Signal) ro.Subscription {
	return Signals(signals...).SubscribeWithContext(ctx, ro.OnNextWithContext(func(_ context.Context, sig os.Signal) {
		callback(sig)
	}))
}
