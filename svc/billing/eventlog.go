package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLog remembers processor event ids that were fully processed, so that
// redeliveries skip the handlers. Events are marked only after success, so a
// failed attempt is retried in full.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// MemoryEventLog is a process-local EventLog with per-entry expiry.
type MemoryEventLog struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	return &MemoryEventLog{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryEventLog) Seen(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.seen[id]
	if !ok {
		return false, nil
	}
	if l.ttl > 0 && l.now().After(exp) {
		delete(l.seen, id)
		return false, nil
	}
	return true, nil
}

func (l *MemoryEventLog) Mark(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// Drop expired entries while holding the lock anyway.
	for k, exp := range l.seen {
		if l.ttl > 0 && now.After(exp) {
			delete(l.seen, k)
		}
	}
	l.seen[id] = now.Add(l.ttl)
	return nil
}

// RedisEventLog stores processed event ids as expiring Redis keys, shared by
// every instance of the service.
type RedisEventLog struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisEventLog(client redis.Cmdable, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, prefix: "billing:event:", ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+id).Result()
	if err != nil {
		return false, errors.Join(ErrPersistence, err)
	}
	return n > 0, nil
}

func (l *RedisEventLog) Mark(ctx context.Context, id string) error {
	if err := l.client.SetNX(ctx, l.prefix+id, 1, l.ttl).Err(); err != nil {
		return errors.Join(ErrPersistence, err)
	}
	return nil
}
