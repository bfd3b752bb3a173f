// Package store holds the shared mutable state of the pipeline: rate-limit windows,
// reviews, cached review listings and captcha answers. Each concern has an in-process
// implementation and a networked one (Redis or MySQL) selected by configuration.
package store

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oakhaven/storefront/config"
)

// NewRedisClient connects to the configured Redis and verifies it answers a ping.
func NewRedisClient(ctx context.Context, cfg config.AppConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rc.Options().Addr, err)
	}
	return rc, nil
}
