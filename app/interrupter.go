package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ErrInterrupted the process was asked to stop by a signal, the normal way to shut down
var ErrInterrupted = errors.New("got interrupt signal")

// Interrupter returns as soon as the process receives SIGINT or SIGTERM
type Interrupter struct{}

// Run waits for a signal or for ctx to be done
func (i Interrupter) Run(ctx context.Context) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		return fmt.Errorf("%w: %s", ErrInterrupted, sig.String())
	case <-ctx.Done():
		return fmt.Errorf("interrupter: %w", ctx.Err())
	}
}
