package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStartResourceCollector(t *testing.T) {
	SetEnabled(true)
	Goroutines.Set(0)

	cancel := StartResourceCollector(context.Background(), 10*time.Millisecond)
	defer cancel()

	// The collector samples once immediately on start.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(Goroutines) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Expected goroutine gauge to be updated")
}
