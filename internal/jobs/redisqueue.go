package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisQueueKey is the list holding pending job IDs.
const DefaultRedisQueueKey = "gait:jobs:queue"

// RedisQueue is a list-backed queue shared by every process pointed at the
// same Redis. Producers LPUSH, consumers BRPOP, so order is FIFO.
type RedisQueue struct {
	client *redis.Client
	key    string
	// poll bounds each BRPOP so Dequeue notices cancellation.
	poll time.Duration
}

// NewRedisQueue parses url (redis://host:port/db) and verifies the
// connection.
func NewRedisQueue(ctx context.Context, url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisQueueFromClient(client, key), nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisQueueKey
	}
	return &RedisQueue{client: client, key: key, poll: 2 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, id string) error {
	return q.client.LPush(ctx, q.key, id).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		case errors.Is(err, redis.ErrClosed):
			return "", ErrQueueClosed
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
		// BRPOP replies [key, value].
		if len(res) != 2 {
			return "", fmt.Errorf("unexpected BRPOP reply: %v", res)
		}
		return res[1], nil
	}
}

// Len returns the number of waiting IDs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
