package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context that is cancelled when the process is interrupted or terminated.
func TerminateOnSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
