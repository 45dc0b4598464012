//go:build !windows

package platform

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NewShutdownContext returns a context canceled by SIGINT or SIGTERM.
func NewShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
