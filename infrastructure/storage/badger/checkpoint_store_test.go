package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

func newTestStore(t *testing.T, opts ...Option) *CheckpointStore {
	t.Helper()

	s, err := NewCheckpointStore(DefaultConfig(), append([]Option{WithInMemory()}, opts...)...)
	if err != nil {
		t.Fatalf("NewCheckpointStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, WithKeyPrefix("test:"))
	ctx := context.Background()

	if _, err := s.Fetch(ctx, "missing"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Fatalf("Fetch(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "a-1", []byte("v1"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "a-1", []byte("v2"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := s.Fetch(ctx, "a-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Fetch() = %q, want v2", got)
	}

	if err := s.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "a-1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestCheckpointStore_InvalidKey(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Put(context.Background(), "", []byte("x"), checkpoint.PutOptions{}); !errors.Is(err, checkpoint.ErrInvalidKey) {
		t.Errorf("Put(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestCheckpointStore_CloseTwice(t *testing.T) {
	t.Parallel()

	s, err := NewCheckpointStore(DefaultConfig(), WithInMemory())
	if err != nil {
		t.Fatalf("NewCheckpointStore() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCheckpointStore_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewCheckpointStore(DefaultConfig(), WithDir(dir))
	if err != nil {
		t.Fatalf("NewCheckpointStore() error = %v", err)
	}
	if err := s.Put(ctx, "durable", []byte("yes"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewCheckpointStore(DefaultConfig(), WithDir(dir))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Fetch(ctx, "durable")
	if err != nil {
		t.Fatalf("Fetch() after reopen error = %v", err)
	}
	if string(got) != "yes" {
		t.Errorf("Fetch() = %q, want yes", got)
	}
}

func TestBadgerOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		wantSync bool
		wantMem  bool
		wantDir  string
	}{
		{name: "defaults", opts: []Option{WithDir("/data")}, wantDir: "/data"},
		{name: "sync writes", opts: []Option{WithDir("/data"), WithSyncWrites(true)}, wantSync: true, wantDir: "/data"},
		{name: "in memory ignores dir", opts: []Option{WithDir("/data"), WithInMemory()}, wantMem: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			o := badgerOptions(cfg)
			if o.SyncWrites != tt.wantSync {
				t.Errorf("SyncWrites = %v, want %v", o.SyncWrites, tt.wantSync)
			}
			if o.InMemory != tt.wantMem {
				t.Errorf("InMemory = %v, want %v", o.InMemory, tt.wantMem)
			}
			if o.Dir != tt.wantDir {
				t.Errorf("Dir = %q, want %q", o.Dir, tt.wantDir)
			}
			if o.NumVersionsToKeep != 1 {
				t.Errorf("NumVersionsToKeep = %d, want 1", o.NumVersionsToKeep)
			}
		})
	}
}
