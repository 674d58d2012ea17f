package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"imagededup/logging"
)

// SetupHandler returns a context that is cancelled on SIGINT or SIGTERM so
// a running scan stops between files instead of mid-move. A second signal
// exits immediately. The returned stop func releases the handler.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, stopping after the current file", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case <-sigChan:
			os.Exit(130)
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			cancel()
		})
	}
	return ctx, stop
}
