package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/clock"
)

func TestCheckpointStore_PutFetchDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewCheckpointStore()

	value := []byte(`{"v":1}`)
	if err := s.Put(ctx, "agent:a", value, checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	value[0] = 'X'

	got, err := s.Fetch(ctx, "agent:a")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("Fetch() = %s, want stored copy", got)
	}

	if err := s.Delete(ctx, "agent:a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "agent:a"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "agent:a"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestCheckpointStore_InvalidKey(t *testing.T) {
	t.Parallel()

	err := NewCheckpointStore().Put(context.Background(), "", nil, checkpoint.PutOptions{})
	if !errors.Is(err, checkpoint.ErrInvalidKey) {
		t.Errorf("Put(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestCheckpointStore_TTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewManual(time.Unix(1000, 0), 0)
	s := NewCheckpointStore(WithClock(clk))

	if err := s.Put(ctx, "k", []byte("v"), checkpoint.PutOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "k"); err != nil {
		t.Fatalf("Fetch() before expiry error = %v", err)
	}

	clk.Advance(2 * time.Minute)
	if _, err := s.Fetch(ctx, "k"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after expiry error = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", s.Len())
	}
}

func TestCheckpointStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCheckpointStore().Fetch(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}
