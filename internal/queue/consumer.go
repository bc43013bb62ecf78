package queue

import (
	"context"
	"errors"
	"time"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type Consumer struct {
	client      *redis.Client
	queue       string
	dlq         string
	pollTimeout time.Duration
	log         zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client:      redisClient.Client(),
		queue:       cfg.Cleanup.Queue,
		dlq:         cfg.DLQName(),
		pollTimeout: 5 * time.Second,
		log:         logger.Component("queue"),
	}
}

// ConsumeOrphans blocks until ctx is done, handing each ledger entry to handler.
func (c *Consumer) ConsumeOrphans(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if _, err := c.consumeOne(ctx, handler); err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to consume message")
			}
		}
	}
}

// consumeOne waits up to pollTimeout for one message. It reports whether a
// message was taken. Handler failures move the message to the dead-letter list.
func (c *Consumer) consumeOne(ctx context.Context, handler MessageHandler) (bool, error) {
	result, err := c.client.BRPop(ctx, c.pollTimeout, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if len(result) < 2 {
		return false, nil
	}

	message := []byte(result[1])
	if err := handler(ctx, message); err != nil {
		// the message is already off the ledger, so neither push may use a
		// cancelled ctx
		pushCtx := context.WithoutCancel(ctx)

		if ctx.Err() != nil {
			c.log.Warn().Err(err).Str("queue", c.queue).Msg("Interrupted while processing message, returning it to the queue")
			if rqErr := c.Requeue(pushCtx, message); rqErr != nil {
				c.log.Error().Err(rqErr).Str("queue", c.queue).Msg("Failed to requeue message")
			}
			return true, nil
		}

		c.log.Error().Err(err).Str("queue", c.queue).Msg("Failed to process message")
		if dlqErr := c.DeadLetter(pushCtx, message); dlqErr != nil {
			c.log.Error().Err(dlqErr).Str("dlq", c.dlq).Msg("Failed to move message to DLQ")
		}
	}
	return true, nil
}

func (c *Consumer) DeadLetter(ctx context.Context, message []byte) error {
	return c.client.LPush(ctx, c.dlq, message).Err()
}

// Requeue puts message back at the consuming end of the queue, so it is the
// next one taken.
func (c *Consumer) Requeue(ctx context.Context, message []byte) error {
	return c.client.RPush(ctx, c.queue, message).Err()
}
