package lock

import (
	"context"
	"time"
)

// Lease is a live mutual-exclusion grant on one resource key. The token
// authenticates release and renewal; a lease whose token no longer
// matches the stored value has expired and been taken over.
type Lease struct {
	Key   string
	Token string
	TTL   time.Duration
}

// Locker is the lease substrate: single-attempt atomic primitives over
// one resource key. Retrying and ordering live in Manager.
type Locker interface {
	// Acquire performs one set-if-absent-with-expiry attempt. It returns
	// a nil lease when the resource is currently held by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
	// Release deletes the lease if and only if the token still matches.
	// Releasing a lease that is no longer held is a safe no-op.
	Release(ctx context.Context, l *Lease) (bool, error)
	// Renew extends the lease expiry if and only if the token still
	// matches. It returns false when the lease was lost.
	Renew(ctx context.Context, l *Lease, ttl time.Duration) (bool, error)
}
