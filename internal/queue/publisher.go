package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clipshare/internal/logging"
)

// Publisher appends events to a stream.
type Publisher interface {
	// Publish returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event Event) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
	logger *zap.Logger
}

// DefaultStreamMaxLen caps the stream with approximate trimming.
const DefaultStreamMaxLen = 100000

func NewPublisher(client *redis.Client, logger *zap.Logger) Publisher {
	return &RedisPublisher{
		client: client,
		maxLen: DefaultStreamMaxLen,
		logger: logging.OrNop(logger).Named("publisher"),
	}
}

// Publish adds the event with XADD, letting Redis assign the ID.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) (string, error) {
	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	p.logger.Debug("published",
		zap.String("stream", stream),
		zap.String("type", event.Type),
		zap.String("msg_id", messageID),
	)
	return messageID, nil
}
