package bsbng

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context canceled on SIGINT or SIGTERM, so
// a build interrupted mid-round stops dispatching new compiles (the
// scheduler's errgroup checks ctx between modules) instead of running to
// completion regardless.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// A second signal falls through to the default OS handling instead
		// of waiting on a build that isn't honoring cancellation.
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
