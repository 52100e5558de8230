package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memLease struct {
	token     string
	expiresAt time.Time
}

func (m *memLease) expired(now time.Time) bool {
	return !m.expiresAt.IsZero() && now.After(m.expiresAt)
}

// InMemory implements Locker using local memory with the same expiry and
// token semantics as the Redis locker. It is intended for tests.
type InMemory struct {
	mu     sync.Mutex
	leases map[string]*memLease
}

// NewInMemory returns a new in-memory locker.
func NewInMemory() *InMemory {
	return &InMemory{leases: make(map[string]*memLease)}
}

// Acquire attempts to obtain the lease without waiting.
func (l *InMemory) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, ok := l.leases[key]; ok && !cur.expired(now) {
		return nil, nil
	}
	ml := &memLease{token: uuid.NewString()}
	if ttl > 0 {
		ml.expiresAt = now.Add(ttl)
	}
	l.leases[key] = ml
	return &Lease{Key: key, Token: ml.token, TTL: ttl}, nil
}

// Release frees the lease if the token still matches.
func (l *InMemory) Release(ctx context.Context, lease *Lease) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.leases[lease.Key]
	if !ok || cur.token != lease.Token || cur.expired(time.Now()) {
		return false, nil
	}
	delete(l.leases, lease.Key)
	return true, nil
}

// Renew extends the lease expiry if the token still matches.
func (l *InMemory) Renew(ctx context.Context, lease *Lease, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	cur, ok := l.leases[lease.Key]
	if !ok || cur.token != lease.Token || cur.expired(now) {
		return false, nil
	}
	if ttl > 0 {
		cur.expiresAt = now.Add(ttl)
	} else {
		cur.expiresAt = time.Time{}
	}
	return true, nil
}
