package metrics

import (
	"context"
	"runtime"
	"time"
)

// StartResourceCollector starts a background goroutine that periodically
// updates the resource gauges. Call the returned cancel function to stop it.
func StartResourceCollector(ctx context.Context, interval time.Duration) context.CancelFunc {
	if interval == 0 {
		interval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect()
			}
		}
	}()

	return cancel
}

func collect() {
	if !IsEnabled() {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	Goroutines.Set(float64(runtime.NumGoroutine()))
	MemoryAllocBytes.Set(float64(m.Alloc))
}
