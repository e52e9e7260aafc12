package allocator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// storeFactories lists the backends that run without external services.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemory() },
		"sqlite": func() Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestDefaults(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			snap, err := s.Snapshot(ctx)
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if snap != DefaultState() {
				t.Errorf("initial state = %+v, want %+v", snap, DefaultState())
			}

			id, _ := s.NextModID(ctx)
			rid, _ := s.ConsumeResultID(ctx)
			if id != 2 || rid != 4097 {
				t.Errorf("first draws = (%d, %d), want (2, 4097)", id, rid)
			}
		})
	}
}

func TestResultIDsAreSequentialWhenInterleaved(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			r0, err := s.ConsumeResultID(ctx)
			if err != nil {
				t.Fatalf("ConsumeResultID: %v", err)
			}
			const n = 25
			for i := 1; i < n; i++ {
				if i%3 == 0 {
					if _, err := s.NextModID(ctx); err != nil {
						t.Fatalf("NextModID: %v", err)
					}
				}
				got, err := s.ConsumeResultID(ctx)
				if err != nil {
					t.Fatalf("ConsumeResultID: %v", err)
				}
				if got != r0+int64(i) {
					t.Fatalf("draw %d = %d, want %d", i, got, r0+int64(i))
				}
			}
		})
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore()

			for i := 0; i < 7; i++ {
				s.NextModID(ctx)
				s.ConsumeResultID(ctx)
			}
			st, err := s.Reset(ctx)
			if err != nil {
				t.Fatalf("Reset: %v", err)
			}
			if st != DefaultState() {
				t.Errorf("Reset returned %+v", st)
			}
			id, _ := s.NextModID(ctx)
			rid, _ := s.ConsumeResultID(ctx)
			if id != 2 || rid != 4097 {
				t.Errorf("after reset draws = (%d, %d), want (2, 4097)", id, rid)
			}
		})
	}
}

func TestMemoryConcurrentDrawsAreUnique(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const workers, perWorker = 16, 200
	seen := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, _ := s.ConsumeResultID(ctx)
				seen <- id
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for id := range seen {
		if unique[id] {
			t.Fatalf("result id %d handed out twice", id)
		}
		unique[id] = true
	}
	snap, _ := s.Snapshot(ctx)
	if want := DefaultNextResultID + workers*perWorker; snap.NextResultID != want {
		t.Errorf("next result id = %d, want %d", snap.NextResultID, want)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.NextModID(ctx)
	s.ConsumeResultID(ctx)
	s.ConsumeResultID(ctx)
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.NextID != 3 || snap.NextResultID != 4099 {
		t.Errorf("snapshot after reopen = %+v", snap)
	}
}

func TestParseBackend(t *testing.T) {
	tests := map[string]string{
		"":         BackendMemory,
		"Memory":   BackendMemory,
		" redis ":  BackendRedis,
		"postgres": BackendPostgres,
		"SQLITE":   BackendSQLite,
	}
	for in, want := range tests {
		got, err := ParseBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseBackend("etcd"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("ParseBackend(etcd) err = %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open() = %T, want *Memory", s)
	}
}
