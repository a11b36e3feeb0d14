package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChecker probes a Redis server with PING.
type RedisChecker struct {
	name   string
	client redis.UniversalClient
	owned  bool
}

// NewRedisChecker creates a checker around an existing client. The caller owns
// the client.
func NewRedisChecker(name string, client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{name: name, client: client}
}

func newOwnedRedisChecker(name string, client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{name: name, client: client, owned: true}
}

// Close closes the client if the checker created it.
func (c *RedisChecker) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}

// Name returns the checker name.
func (c *RedisChecker) Name() string {
	return c.name
}

// Check sends PING and expects PONG.
func (c *RedisChecker) Check(ctx context.Context) Result {
	start := time.Now()
	pong, err := c.client.Ping(ctx).Result()
	if err != nil {
		return Unhealthy("redis ping failed", err)
	}
	if pong != "PONG" {
		return Unhealthy("unexpected ping reply", fmt.Errorf("%w: reply %q", ErrCheckFailed, pong))
	}

	return Healthy("redis responded").WithDetails(map[string]any{
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
