// Package clock provides context-aware waiting.
package clock

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was cut short.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep returns immediately unless ctx is done. Tests use it to skip delays.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
