package lock

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryAcquireReleaseRenew(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", time.Second)
	if err != nil || lease == nil {
		t.Fatalf("acquire: lease %+v err %v", lease, err)
	}
	if second, err := l.Acquire(ctx, "k", time.Second); err != nil || second != nil {
		t.Fatalf("expected busy, got %+v err %v", second, err)
	}
	if ok, err := l.Renew(ctx, lease, time.Second); err != nil || !ok {
		t.Fatalf("renew: ok %v err %v", ok, err)
	}
	if ok, err := l.Release(ctx, lease); err != nil || !ok {
		t.Fatalf("release: ok %v err %v", ok, err)
	}
	if ok, err := l.Release(ctx, lease); err != nil || ok {
		t.Fatalf("double release must be a no-op, ok %v err %v", ok, err)
	}
}

func TestInMemoryExpiry(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", 10*time.Millisecond)
	if err != nil || lease == nil {
		t.Fatalf("acquire: lease %+v err %v", lease, err)
	}
	time.Sleep(20 * time.Millisecond)
	if second, err := l.Acquire(ctx, "k", time.Second); err != nil || second == nil {
		t.Fatalf("lease should expire, got %+v err %v", second, err)
	}
	if ok, err := l.Release(ctx, lease); err != nil || ok {
		t.Fatalf("expired release must fail, ok %v err %v", ok, err)
	}
	if ok, err := l.Renew(ctx, lease, time.Second); err != nil || ok {
		t.Fatalf("expired renew must fail, ok %v err %v", ok, err)
	}
}
