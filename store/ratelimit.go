package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/models"
)

// RateLimitStore records one request against an identity's fixed window.
//
// Hit starts a fresh window (count 1, reset now+window) when none exists or the
// current one ended strictly before now; otherwise it increments the count and
// leaves the reset time unchanged. Hit must be atomic per key.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (models.RateLimitRecord, error)
	Reset(ctx context.Context, key string) error
}

// MemoryRateLimitStore keeps windows in process memory.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	records map[string]*models.RateLimitRecord
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{records: make(map[string]*models.RateLimitRecord)}
}

func (s *MemoryRateLimitStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (models.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || now.After(rec.WindowResetTime) {
		rec = &models.RateLimitRecord{IdentityKey: key, Count: 1, WindowResetTime: now.Add(window)}
		s.records[key] = rec
		return *rec, nil
	}
	rec.Count++
	return *rec, nil
}

func (s *MemoryRateLimitStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Sweep drops every window that ended before now and returns how many were removed.
func (s *MemoryRateLimitStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.records {
		if now.After(rec.WindowResetTime) {
			delete(s.records, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked identities.
func (s *MemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweeper periodically evicts expired windows until ctx is cancelled.
func (s *MemoryRateLimitStore) StartSweeper(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.Sweep(now); n > 0 {
					logger.Debug("evicted expired rate limit windows", zap.Int("count", n))
				}
			}
		}
	}()
}

// hitScript stores {count, reset} in a hash. reset is unix milliseconds.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset'))
if not reset or now > reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', KEYS[1], window + 1000)
  return {1, reset}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset}
`)

// RedisRateLimitStore shares windows between instances through Redis.
type RedisRateLimitStore struct {
	rc     *redis.Client
	prefix string
}

func NewRedisRateLimitStore(rc *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{rc: rc, prefix: "rl:"}
}

func (s *RedisRateLimitStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (models.RateLimitRecord, error) {
	res, err := hitScript.Run(ctx, s.rc, []string{s.prefix + key}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return models.RateLimitRecord{}, fmt.Errorf("rate limit hit %s: %w", key, err)
	}
	if len(res) != 2 {
		return models.RateLimitRecord{}, fmt.Errorf("rate limit hit %s: unexpected reply %v", key, res)
	}
	return models.RateLimitRecord{
		IdentityKey:     key,
		Count:           res[0],
		WindowResetTime: time.UnixMilli(res[1]),
	}, nil
}

func (s *RedisRateLimitStore) Reset(ctx context.Context, key string) error {
	return s.rc.Del(ctx, s.prefix+key).Err()
}
