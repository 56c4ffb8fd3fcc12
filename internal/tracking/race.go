package tracking

import (
	"context"
	"time"
)

// raceTimeout runs fn in its own goroutine and returns its result, or fallback if d elapses first.
// The losing call is abandoned, not cancelled; fn must bound itself.
// A panic inside fn yields fallback.
func raceTimeout[T any](ctx context.Context, d time.Duration, fallback T, fn func(context.Context) T) (T, bool) {
	done := make(chan T, 1) // an abandoned fn must not block on send

	go func() {
		defer func() {
			if recover() != nil {
				done <- fallback
			}
		}()
		done <- fn(ctx)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case v := <-done:
		return v, true
	case <-timer.C:
		return fallback, false
	}
}
