//go:build windows

package platform

import (
	"context"
	"os"
	"os/signal"
)

// NewShutdownContext returns a context canceled by Ctrl+C. Console
// processes on Windows do not receive SIGTERM.
func NewShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
