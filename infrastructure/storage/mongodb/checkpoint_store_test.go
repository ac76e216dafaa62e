package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Collection != "checkpoints" {
		t.Errorf("Collection = %s, want checkpoints", cfg.Collection)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", cfg.QueryTimeout)
	}
}

func TestCheckpointStore_toDocument(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewCheckpointStore(nil, 0)
	s.now = func() time.Time { return now }

	doc := s.toDocument("a-1", []byte("v"), checkpoint.PutOptions{})
	if doc.Key != "a-1" || string(doc.Value) != "v" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.ExpiresAt != nil {
		t.Error("ExpiresAt should be nil without TTL")
	}

	doc = s.toDocument("a-1", nil, checkpoint.PutOptions{TTL: time.Hour})
	if doc.ExpiresAt == nil || !doc.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", doc.ExpiresAt, now.Add(time.Hour))
	}

	if s.expired(doc) {
		t.Error("document should not be expired yet")
	}
	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if !s.expired(doc) {
		t.Error("document should be expired")
	}
}

func TestCheckpointStore_InvalidKey(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore(nil, 0)
	if err := s.Put(context.Background(), "", nil, checkpoint.PutOptions{}); !errors.Is(err, checkpoint.ErrInvalidKey) {
		t.Errorf("Put(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
	if err := wrapError(context.DeadlineExceeded); !errors.Is(err, checkpoint.ErrOperationTimeout) {
		t.Errorf("wrapError(deadline) = %v, want ErrOperationTimeout", err)
	}
	if err := wrapError(errors.New("x")); !errors.Is(err, checkpoint.ErrConnectionFailed) {
		t.Errorf("wrapError(other) = %v, want ErrConnectionFailed", err)
	}
}

// TestCheckpointStore_Integration runs against a live server when
// AGENT_RUNTIME_MONGODB_URI is set.
func TestCheckpointStore_Integration(t *testing.T) {
	uri := os.Getenv("AGENT_RUNTIME_MONGODB_URI")
	if uri == "" {
		t.Skip("AGENT_RUNTIME_MONGODB_URI not set")
	}

	ctx := context.Background()
	s, err := Connect(ctx, DefaultConfig(), WithURI(uri), WithCollection("checkpoints_test"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "it", []byte("value"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Fetch(ctx, "it")
	if err != nil || string(got) != "value" {
		t.Fatalf("Fetch() = %q, %v", got, err)
	}
	if err := s.Delete(ctx, "it"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "it"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after Delete error = %v, want ErrNotFound", err)
	}
}
