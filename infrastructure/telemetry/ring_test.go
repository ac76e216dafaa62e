package telemetry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

func TestRing_DropsOldest(t *testing.T) {
	t.Parallel()

	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Emit(context.Background(), telemetry.Event{Name: fmt.Sprintf("e%d", i)})
	}

	events := r.Events()
	if len(events) != 3 {
		t.Fatalf("Len = %d, want 3", len(events))
	}
	for i, want := range []string{"e2", "e3", "e4"} {
		if events[i].Name != want {
			t.Errorf("events[%d] = %s, want %s", i, events[i].Name, want)
		}
	}
	if r.TotalWritten() != 5 {
		t.Errorf("TotalWritten() = %d, want 5", r.TotalWritten())
	}
}

func TestRing_DefaultSize(t *testing.T) {
	t.Parallel()

	if r := NewRing(0); r.max != DefaultRingSize {
		t.Errorf("max = %d, want %d", r.max, DefaultRingSize)
	}
}

func TestRing_Reset(t *testing.T) {
	t.Parallel()

	r := NewRing(4)
	r.Emit(context.Background(), telemetry.Event{Name: "x"})
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", r.Len())
	}
}

func TestRing_Concurrent(t *testing.T) {
	t.Parallel()

	r := NewRing(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Emit(context.Background(), telemetry.Event{Name: "c"})
			}
		}()
	}
	wg.Wait()

	if r.Len() != 500 {
		t.Errorf("Len() = %d, want 500", r.Len())
	}
}
