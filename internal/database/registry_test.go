package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/testutil"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

type stubExecutor struct {
	closed bool
}

func (s *stubExecutor) Execute(context.Context, string, ExecOptions) ([]*types.Result, error) {
	return []*types.Result{{}}, nil
}
func (s *stubExecutor) Kind() Kind { return KindSQLite }
func (s *stubExecutor) Close()     { s.closed = true }

func TestRegistry_OpensOnce(t *testing.T) {
	var mu sync.Mutex
	opened := map[string]int{}
	stubs := map[string]*stubExecutor{}
	open := func(_ context.Context, ds types.DataSource) (Executor, error) {
		mu.Lock()
		defer mu.Unlock()
		opened[ds.Name]++
		s := &stubExecutor{}
		stubs[ds.Name] = s
		return s, nil
	}

	r := NewRegistry([]types.DataSource{
		{Name: "a", Kind: "sqlite", DSN: ":memory:"},
		{Name: "b", Kind: "postgres", DSN: "postgres://x"},
	}, open)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Get(context.Background(), "a"); err != nil {
				t.Errorf("Get(a) error = %v", err)
			}
		}()
	}
	wg.Wait()

	if opened["a"] != 1 {
		t.Errorf("data source a opened %d times, want 1", opened["a"])
	}
	if opened["b"] != 0 {
		t.Errorf("data source b opened eagerly")
	}

	list := r.List()
	if len(list) != 2 || list[0].Name != "a" || list[1].Kind != "postgres" {
		t.Errorf("List() = %+v", list)
	}

	r.Close()
	if !stubs["a"].closed {
		t.Error("Close() did not close opened executor")
	}
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Get(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownDataSource) {
		t.Errorf("Get() error = %v, want %v", err, ErrUnknownDataSource)
	}
}

func TestRegistry_OpenError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry([]types.DataSource{{Name: "a"}}, func(context.Context, types.DataSource) (Executor, error) {
		return nil, boom
	})
	if _, err := r.Get(context.Background(), "a"); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want %v", err, boom)
	}
}

func TestRegistry_SlowOpenDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	slowStarted := make(chan struct{})
	open := func(ctx context.Context, ds types.DataSource) (Executor, error) {
		if ds.Name == "slow" {
			close(slowStarted)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &stubExecutor{}, nil
	}
	r := NewRegistry([]types.DataSource{{Name: "fast"}, {Name: "slow"}}, open)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Get(ctx, "fast"); err != nil {
		t.Fatalf("Get(fast) error = %v", err)
	}

	slowDone := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "slow")
		slowDone <- err
	}()
	<-slowStarted

	for _, name := range []string{"fast", "fast"} {
		got := make(chan error, 1)
		go func() {
			_, err := r.Get(ctx, name)
			got <- err
		}()
		select {
		case err := <-got:
			if err != nil {
				t.Fatalf("Get(%s) error = %v", name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Get(%s) blocked while another data source was opening", name)
		}
	}

	// a second caller for the slow source waits for the same open
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := r.Get(waitCtx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get(slow) while opening error = %v, want deadline exceeded", err)
	}

	close(release)
	if err := <-slowDone; err != nil {
		t.Errorf("Get(slow) error = %v", err)
	}
}

func TestRegistry_RetriesFailedOpen(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	r := NewRegistry([]types.DataSource{{Name: "a"}}, func(context.Context, types.DataSource) (Executor, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &stubExecutor{}, nil
	})
	defer r.Close()

	if _, err := r.Get(context.Background(), "a"); !errors.Is(err, boom) {
		t.Fatalf("first Get() error = %v, want %v", err, boom)
	}
	if _, err := r.Get(context.Background(), "a"); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("open called %d times, want 2", calls)
	}
}

func TestRegistry_CloseDuringOpen(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	stub := &stubExecutor{}
	r := NewRegistry([]types.DataSource{{Name: "a"}}, func(context.Context, types.DataSource) (Executor, error) {
		close(started)
		<-release
		return stub, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := r.Get(context.Background(), "a")
		done <- err
	}()
	<-started

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() blocked behind an open in progress")
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Get() error = %v, want %v", err, ErrRegistryClosed)
	}
	if !stub.closed {
		t.Error("executor opened after Close was not closed")
	}
	if _, err := r.Get(context.Background(), "a"); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Get() after Close error = %v, want %v", err, ErrRegistryClosed)
	}
}

func TestRegistry_DefaultOpenSQLite(t *testing.T) {
	ds := testutil.SQLiteDataSource(t, "local")
	r := NewRegistry([]types.DataSource{ds}, nil)
	defer r.Close()

	ex, err := r.Get(context.Background(), "local")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ex.Kind() != KindSQLite {
		t.Errorf("Kind() = %q", ex.Kind())
	}
}
