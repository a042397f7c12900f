package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rebateLedger/internal/model"
)

// streamMaxLen bounds the event stream via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

type redisPublisher interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisConfig holds connection parameters for the Redis sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Channel  string
}

// RedisSink appends envelopes to a Redis stream for durable consumers and
// publishes them on a pub/sub channel for live ones. Either target may be
// left empty.
type RedisSink struct {
	rdb     redisPublisher
	closer  func() error
	stream  string
	channel string
}

// NewRedisSink connects to Redis and verifies the connection with a ping.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	sink := newRedisSink(rdb, cfg.Stream, cfg.Channel)
	sink.closer = rdb.Close
	return sink, nil
}

func newRedisSink(rdb redisPublisher, stream, channel string) *RedisSink {
	return &RedisSink{rdb: rdb, stream: stream, channel: channel}
}

func (s *RedisSink) Emit(ctx context.Context, env model.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if s.stream != "" {
		args := &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"name":    env.Name,
				"payload": payload,
			},
		}
		if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("redis: stream append %s: %w", s.stream, err)
		}
	}
	if s.channel != "" {
		if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
			return fmt.Errorf("redis: publish %s: %w", s.channel, err)
		}
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
