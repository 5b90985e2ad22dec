package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Valkey list holding pending tasks.
const DefaultQueueKey = "mail:tasks"

// ErrEmpty is returned by Dequeue when no task arrived before the timeout.
var ErrEmpty = errors.New("mail queue empty")

// Queue accepts tasks for background delivery.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
}

// RedisQueue is a FIFO task list in Valkey: LPUSH to add, BRPOP to take.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue on the given list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

// Enqueue appends a task to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal mail task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue mail task: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest task.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue mail task: %w", err)
	}

	// res is [key, value].
	var t Task
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		return nil, fmt.Errorf("decode mail task: %w", err)
	}
	return &t, nil
}

// Len returns the number of pending tasks.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("mail queue length: %w", err)
	}
	return n, nil
}
