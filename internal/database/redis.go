package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions is the subset of go-redis options the service configures.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// ConnectRedis creates a client and verifies it with PING. Caller must call client.Close().
func ConnectRedis(ctx context.Context, opts RedisOptions, timeout time.Duration) (*redis.Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
