package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/logger"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/internal/queue"

	"github.com/rs/zerolog"
)

// Remover deletes attachments from the object store.
type Remover interface {
	Exists(ctx context.Context, storageID string) (bool, error)
	Delete(ctx context.Context, storageID string) error
}

// OrphanSource feeds ledger entries to a handler and parks failures.
type OrphanSource interface {
	ConsumeOrphans(ctx context.Context, handler queue.MessageHandler) error
	DeadLetter(ctx context.Context, message []byte) error
	Requeue(ctx context.Context, message []byte) error
}

// OrphanSweeper drains the orphaned-attachment ledger, retrying the deletes
// that failed during request handling.
type OrphanSweeper struct {
	source  OrphanSource
	remover Remover
	pool    *Pool
	log     zerolog.Logger
}

func NewOrphanSweeper(cfg *config.Config, source OrphanSource, remover Remover) *OrphanSweeper {
	return &OrphanSweeper{
		source:  source,
		remover: remover,
		pool:    NewPool(cfg.Cleanup.WorkerCount),
		log:     logger.Component("orphan_sweeper"),
	}
}

// Start blocks until ctx is done.
func (s *OrphanSweeper) Start(ctx context.Context) error {
	s.log.Info().Msg("Starting orphan sweeper")

	s.pool.Start(ctx)

	return s.source.ConsumeOrphans(ctx, s.handleMessage)
}

func (s *OrphanSweeper) Stop() {
	s.log.Info().Msg("Stopping orphan sweeper")
	s.pool.Stop()
}

func (s *OrphanSweeper) handleMessage(ctx context.Context, data []byte) error {
	var job model.OrphanJob
	if err := json.Unmarshal(data, &job); err != nil {
		s.log.Error().Err(err).Msg("Failed to unmarshal orphan job")
		return err
	}
	if job.StorageID == "" {
		return fmt.Errorf("orphan job without storage id")
	}

	return s.pool.Submit(ctx, func(ctx context.Context) error {
		err := s.sweep(ctx, job)
		if err == nil {
			return nil
		}

		pushCtx := context.WithoutCancel(ctx)
		if ctx.Err() != nil {
			// shutting down: leave it for the next run
			if rqErr := s.source.Requeue(pushCtx, data); rqErr != nil {
				s.log.Error().Err(rqErr).Str("storage_id", job.StorageID).Msg("Failed to requeue orphan")
			}
			return err
		}
		if dlqErr := s.source.DeadLetter(pushCtx, data); dlqErr != nil {
			s.log.Error().Err(dlqErr).Str("storage_id", job.StorageID).Msg("Failed to dead-letter orphan")
		}
		return err
	})
}

func (s *OrphanSweeper) sweep(ctx context.Context, job model.OrphanJob) error {
	log := s.log.With().Str("storage_id", job.StorageID).Str("kind", job.Kind).Time("recorded_at", job.RecordedAt).Logger()

	exists, err := s.remover.Exists(ctx, job.StorageID)
	if err != nil {
		return fmt.Errorf("check orphan: %w", err)
	}
	if !exists {
		log.Info().Msg("Orphan already gone")
		return nil
	}

	if err := s.remover.Delete(ctx, job.StorageID); err != nil {
		return fmt.Errorf("delete orphan: %w", err)
	}

	log.Info().Msg("Orphan removed")
	return nil
}
