package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func testConfig() Config {
	return Config{
		TTL:        time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   8 * time.Millisecond,
		Jitter:     time.Millisecond,
	}
}

func newTestManager(t *testing.T) (*Manager, *InMemory) {
	t.Helper()
	locker := NewInMemory()
	return NewManager(locker, testConfig(), nil), locker
}

func assertFree(t *testing.T, locker *InMemory, key string) {
	t.Helper()
	lease, err := locker.Acquire(context.Background(), key, time.Second)
	if err != nil || lease == nil {
		t.Fatalf("resource %q should be free, lease %+v err %v", key, lease, err)
	}
	if _, err := locker.Release(context.Background(), lease); err != nil {
		t.Fatalf("release probe: %v", err)
	}
}

func TestWithResourceCreatesTxn(t *testing.T) {
	m, locker := newTestManager(t)
	err := m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		txn, ok := FromContext(ctx)
		if !ok {
			t.Fatal("expected transaction in context")
		}
		if txn.SessionID == "" {
			t.Fatal("expected session id")
		}
		if !txn.Holds("a") {
			t.Fatal("expected a to be held")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with resource: %v", err)
	}
	assertFree(t, locker, "a")
}

func TestWithResourceReentrant(t *testing.T) {
	m, locker := newTestManager(t)
	depth := 0
	err := m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		depth++
		return m.WithResource(ctx, "a", func(ctx context.Context) error {
			depth++
			return m.WithResource(ctx, "a", func(ctx context.Context) error {
				depth++
				// Still held at full depth.
				if lease, _ := locker.Acquire(context.Background(), "a", time.Second); lease != nil {
					t.Fatal("inner section must not have released the outer hold")
				}
				return nil
			})
		})
	})
	if err != nil {
		t.Fatalf("nested with resource: %v", err)
	}
	if depth != 3 {
		t.Fatalf("expected depth 3, got %d", depth)
	}
	assertFree(t, locker, "a")
}

func TestWithResourceReleasesOnError(t *testing.T) {
	m, locker := newTestManager(t)
	want := errors.New("boom")
	err := m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
	assertFree(t, locker, "a")
}

func TestWithResourceBusy(t *testing.T) {
	m, locker := newTestManager(t)
	lease, err := locker.Acquire(context.Background(), "a", time.Minute)
	if err != nil || lease == nil {
		t.Fatalf("pre-hold: lease %+v err %v", lease, err)
	}
	err = m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	var busy *BusyError
	if !errors.As(err, &busy) || busy.Resource != "a" {
		t.Fatalf("expected BusyError for a, got %v", err)
	}
}

func TestWithResourceSetSortsAndDedupes(t *testing.T) {
	m, locker := newTestManager(t)
	err := m.WithResourceSet(context.Background(), []string{"c", "a", "c", "b", "a"}, func(ctx context.Context) error {
		txn, _ := FromContext(ctx)
		held := txn.Held()
		if len(held) != 3 || held[0] != "a" || held[1] != "b" || held[2] != "c" {
			t.Fatalf("expected held [a b c], got %v", held)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with resource set: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		assertFree(t, locker, k)
	}
}

func TestWithResourceSetPartialFailureReleasesAll(t *testing.T) {
	m, locker := newTestManager(t)
	// b stays contended, so the ordered walk a < b < c fails after a.
	lease, err := locker.Acquire(context.Background(), "b", time.Minute)
	if err != nil || lease == nil {
		t.Fatalf("pre-hold b: lease %+v err %v", lease, err)
	}
	err = m.WithResourceSet(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	assertFree(t, locker, "a")
	assertFree(t, locker, "c")
}

func TestWithResourceSetSkipsHeld(t *testing.T) {
	m, locker := newTestManager(t)
	err := m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		inner := m.WithResourceSet(ctx, []string{"a", "b"}, func(ctx context.Context) error {
			return nil
		})
		if inner != nil {
			return inner
		}
		// The inner set must have released only b, never the outer a.
		if lease, _ := locker.Acquire(context.Background(), "a", time.Second); lease != nil {
			t.Fatal("inner set released the outer hold on a")
		}
		assertFree(t, locker, "b")
		return nil
	})
	if err != nil {
		t.Fatalf("nested set: %v", err)
	}
	assertFree(t, locker, "a")
}

func TestRenewerKeepsLeaseAlive(t *testing.T) {
	locker := NewInMemory()
	cfg := testConfig()
	cfg.TTL = 40 * time.Millisecond
	m := NewManager(locker, cfg, nil)

	err := m.WithResource(context.Background(), "a", func(ctx context.Context) error {
		time.Sleep(120 * time.Millisecond)
		// Three TTLs later the watchdog must still be holding the lease.
		if lease, _ := locker.Acquire(context.Background(), "a", time.Second); lease != nil {
			t.Fatal("lease expired despite renewal")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with resource: %v", err)
	}
	assertFree(t, locker, "a")
}

func TestConcurrentOverlappingSetsNoDeadlock(t *testing.T) {
	locker := NewInMemory()
	cfg := Config{
		TTL:        time.Second,
		MaxRetries: 200,
		BaseDelay:  time.Millisecond,
		MaxDelay:   4 * time.Millisecond,
		Jitter:     time.Millisecond,
	}
	m := NewManager(locker, cfg, nil)

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("res-%d", i)
	}

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		seed := int64(i)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			subset := make([]string, 0, 4)
			for _, id := range ids {
				if rng.Intn(2) == 0 {
					subset = append(subset, id)
				}
			}
			if len(subset) == 0 {
				subset = append(subset, ids[0])
			}
			return m.WithResourceSet(context.Background(), subset, func(ctx context.Context) error {
				time.Sleep(time.Duration(rng.Intn(2)) * time.Millisecond)
				return nil
			})
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, ErrBusy) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("concurrent overlapping sets blocked: possible deadlock")
	}
	for _, id := range ids {
		assertFree(t, locker, id)
	}
}
