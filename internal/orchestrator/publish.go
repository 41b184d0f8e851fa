package orchestrator

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher adapts a go-redis client to the Publisher contract.
type RedisPublisher struct {
	RDB *redis.Client
}

func (p RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.RDB.Publish(ctx, channel, payload).Err()
}
