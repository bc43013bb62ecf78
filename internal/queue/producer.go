package queue

import (
	"context"
	"encoding/json"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/model"

	"github.com/go-redis/redis/v8"
)

// Producer appends orphaned attachments to the cleanup ledger.
type Producer struct {
	client *redis.Client
	queue  string
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		queue:  cfg.Cleanup.Queue,
	}
}

func (p *Producer) EnqueueOrphan(ctx context.Context, job model.OrphanJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}

// Pending reports how many orphans wait on the ledger.
func (p *Producer) Pending(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queue).Result()
}
