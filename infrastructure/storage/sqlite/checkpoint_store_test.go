package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

func newTestStore(t *testing.T) *CheckpointStore {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "checkpoints.db") + "?mode=rwc"
	s, err := NewCheckpointStore(DefaultConfig(), WithDSN(dsn), WithKeyPrefix("test:"))
	if err != nil {
		t.Fatalf("NewCheckpointStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Fetch(ctx, "a-1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Fatalf("Fetch(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "a-1", []byte("first"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "a-1", []byte("second"), checkpoint.PutOptions{}); err != nil {
		t.Fatalf("Put() upsert error = %v", err)
	}

	got, err := s.Fetch(ctx, "a-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Fetch() = %q, want second", got)
	}

	if err := s.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "a-1"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestCheckpointStore_Expiry(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }
	if err := s.Put(ctx, "ttl", []byte("x"), checkpoint.PutOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.Fetch(ctx, "ttl"); err != nil {
		t.Fatalf("Fetch() before expiry error = %v", err)
	}

	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := s.Fetch(ctx, "ttl"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Fetch() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestCheckpointStore_InvalidKey(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Put(context.Background(), "", []byte("x"), checkpoint.PutOptions{}); !errors.Is(err, checkpoint.ErrInvalidKey) {
		t.Errorf("Put(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestConfig_Pragmas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		want    []string
		wantErr error
	}{
		{name: "empty", cfg: Config{}},
		{
			name: "lower case mode",
			cfg:  Config{JournalMode: "wal", BusyTimeout: 1500 * time.Millisecond},
			want: []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=1500"},
		},
		{name: "injected mode", cfg: Config{JournalMode: "wal; DROP TABLE checkpoints"}, wantErr: ErrInvalidJournalMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.cfg.pragmas()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("pragmas() error = %v, want %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("pragmas() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pragmas()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewCheckpointStore_AppliesPragmas(t *testing.T) {
	t.Parallel()

	dsn := "file:" + filepath.Join(t.TempDir(), "pragmas.db") + "?mode=rwc"
	s, err := NewCheckpointStore(DefaultConfig(),
		WithDSN(dsn),
		WithMaxOpenConns(1),
		WithJournalMode("truncate"),
		WithBusyTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatalf("NewCheckpointStore() error = %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query error = %v", err)
	}
	if mode != "truncate" {
		t.Errorf("journal_mode = %q, want truncate", mode)
	}

	var busy int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("busy_timeout query error = %v", err)
	}
	if busy != 2000 {
		t.Errorf("busy_timeout = %d, want 2000", busy)
	}
	if got := s.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}

func TestNewCheckpointStore_RejectsJournalMode(t *testing.T) {
	t.Parallel()

	_, err := NewCheckpointStore(DefaultConfig(),
		WithDSN("file:"+filepath.Join(t.TempDir(), "bad.db")+"?mode=rwc"),
		WithJournalMode("bogus"),
	)
	if !errors.Is(err, ErrInvalidJournalMode) {
		t.Errorf("NewCheckpointStore() error = %v, want ErrInvalidJournalMode", err)
	}
}
