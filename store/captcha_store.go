package store

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

// redisCaptchaStore implements base64Captcha.Store so captcha answers survive
// across instances behind a load balancer.
type redisCaptchaStore struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRedisCaptchaStore(rc *redis.Client, ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCaptchaStore{rc: rc, ttl: ttl}
}

func (s *redisCaptchaStore) key(id string) string {
	return "captcha:" + id
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.rc.Set(ctx, s.key(id), value, s.ttl).Err()
}

// Get returns "" for unknown ids or on error. clear uses GETDEL so an answer is read at most once.
func (s *redisCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var (
		v   string
		err error
	)
	if clear {
		v, err = s.rc.GetDel(ctx, s.key(id)).Result()
	} else {
		v, err = s.rc.Get(ctx, s.key(id)).Result()
	}
	if err != nil {
		return ""
	}
	return v
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
