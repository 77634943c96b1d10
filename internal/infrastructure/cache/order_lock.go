package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	apprcv "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// errOrderLocked is returned when another writer holds the order. It maps to
// an HTTP 409 so clients can retry.
func errOrderLocked() error {
	return shared.NewDomainError("CONCURRENT_MODIFICATION", "The order is being edited by another user")
}

// releaseScript deletes the lock key only when the caller still holds it.
// Without the ownership check an expired lease could delete a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisOrderLock serializes writers on a purchase order across service
// instances. Each acquire takes a SETNX lease keyed by order ID; the TTL is a
// crash backstop so a dead holder cannot block an order forever.
type RedisOrderLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisOrderLock creates a Redis-backed order lock
func NewRedisOrderLock(cfg RedisConfig, ttl time.Duration) (*RedisOrderLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisOrderLock{
		client:    client,
		keyPrefix: "receiving:order-lock:",
		ttl:       ttl,
	}, nil
}

// NewRedisOrderLockWithClient creates a lock with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisOrderLockWithClient(client *redis.Client, ttl time.Duration) *RedisOrderLock {
	return &RedisOrderLock{
		client:    client,
		keyPrefix: "receiving:order-lock:",
		ttl:       ttl,
	}
}

// Acquire takes the lease for an order. It does not wait: when another writer
// holds the order the caller gets a retryable conflict error immediately.
func (l *RedisOrderLock) Acquire(ctx context.Context, orderID uuid.UUID) (func(), error) {
	key := l.keyPrefix + orderID.String()
	holder := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, holder, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		return nil, errOrderLocked()
	}

	release := func() {
		// The request context may already be canceled when the deferred
		// release runs, so the delete gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{key}, holder)
	}
	return release, nil
}

// Close closes the Redis client
func (l *RedisOrderLock) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisOrderLock) GetClient() *redis.Client {
	return l.client
}

// LocalOrderLock serializes writers on a purchase order within a single
// process. It is the single-instance counterpart of RedisOrderLock and the
// default when no Redis deployment is configured.
type LocalOrderLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewLocalOrderLock creates a new in-process order lock
func NewLocalOrderLock() *LocalOrderLock {
	return &LocalOrderLock{
		held: make(map[uuid.UUID]struct{}),
	}
}

// Acquire takes the lock for an order, failing fast when it is already held.
// The returned release is idempotent so a double call cannot drop a lock a
// later writer has since taken.
func (l *LocalOrderLock) Acquire(ctx context.Context, orderID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[orderID]; taken {
		return nil, errOrderLocked()
	}
	l.held[orderID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, orderID)
			l.mu.Unlock()
		})
	}
	return release, nil
}

// Size returns the number of held locks (for testing/monitoring)
func (l *LocalOrderLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Ensure both implementations satisfy the application contract
var _ apprcv.OrderLocker = (*RedisOrderLock)(nil)
var _ apprcv.OrderLocker = (*LocalOrderLock)(nil)
