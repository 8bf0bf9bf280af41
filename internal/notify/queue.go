// Package notify records mention notifications and hands their delivery to a queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Delivery is the message queued for asynchronous delivery to a recipient.
type Delivery struct {
	NotificationID string `json:"notification_id"`
	Recipient      string `json:"recipient"`
	From           string `json:"from"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	NoteID         string `json:"note_id"`
	RedirectType   string `json:"redirect_type"`
	RedirectID     string `json:"redirect_id"`
	CreatedAt      int64  `json:"created_at"`
}

// Queue accepts deliveries for later processing.
type Queue interface {
	Push(ctx context.Context, d Delivery) error
}

// RedisQueue is a Redis list used as a FIFO: LPUSH on push, BRPOP on pop.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to redisURL and verifies the connection.
func NewRedisQueue(redisURL, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisQueueWithClient(client, key), nil
}

// NewRedisQueueWithClient creates a queue from an existing Redis client.
func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "notebridge:notifications"
	}
	return &RedisQueue{client: client, key: key}
}

// Key returns the Redis list key.
func (q *RedisQueue) Key() string {
	return q.key
}

// Push appends a delivery to the queue.
func (q *RedisQueue) Push(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push delivery: %w", err)
	}
	return nil
}

// Pop waits up to timeout for the oldest delivery. It returns nil, nil on timeout.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop delivery: %w", err)
	}
	// res is [key, value]
	var d Delivery
	if err := json.Unmarshal([]byte(res[1]), &d); err != nil {
		return nil, fmt.Errorf("unmarshal delivery: %w", err)
	}
	return &d, nil
}

// Len returns the number of queued deliveries.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Ping checks if Redis is reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// LogQueue only logs deliveries. Used when no Redis URL is configured.
type LogQueue struct {
	log zerolog.Logger
}

// NewLogQueue creates a LogQueue.
func NewLogQueue(log zerolog.Logger) *LogQueue {
	return &LogQueue{log: log}
}

// Push logs the delivery and drops it.
func (q *LogQueue) Push(_ context.Context, d Delivery) error {
	q.log.Info().
		Str("recipient", d.Recipient).
		Str("note_id", d.NoteID).
		Str("subject", d.Subject).
		Msg("notification not queued (no redis configured)")
	return nil
}
