package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lease serializes generation of one artifact name across processes.
// Acquire blocks until the caller holds the lease or ctx ends. The returned
// release func is safe to call once.
type Lease interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// NopLease grants every request immediately. Within one process the
// orchestrator already collapses identical generations.
type NopLease struct{}

func (NopLease) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// TokenLocker is a store that can hold an owner token per key with a TTL.
// *database.RedisClient implements it.
type TokenLocker interface {
	AcquireToken(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseToken(ctx context.Context, key, token string) (bool, error)
}

// RedisLease is a Lease backed by SET NX PX with a random owner token. A
// holder that dies loses the lease when the TTL runs out.
type RedisLease struct {
	locker TokenLocker
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLease(locker TokenLocker, prefix string, ttl, poll time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &RedisLease{locker: locker, prefix: prefix, ttl: ttl, poll: poll}
}

func (l *RedisLease) Acquire(ctx context.Context, name string) (func(), error) {
	key := l.prefix + name
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.locker.AcquireToken(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lease %s: %w", name, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lease %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLease) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = l.locker.ReleaseToken(ctx, key, token)
	}
}
