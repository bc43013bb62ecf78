package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/internal/queue"
)

func TestPool_RunsEverySubmittedJob(t *testing.T) {
	pool := NewPool(3)
	pool.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	pool.Stop()

	assert.Equal(t, int32(50), ran.Load())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	// not started, so the buffer fills and Submit blocks
	pool := NewPool(1)
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error { return nil }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// fakeSource replays its messages once, dead-lettering handler failures the
// way queue.Consumer does.
type fakeSource struct {
	messages [][]byte

	mu       sync.Mutex
	dead     []string
	requeued []string
}

func (s *fakeSource) ConsumeOrphans(ctx context.Context, handler queue.MessageHandler) error {
	for _, m := range s.messages {
		if err := handler(ctx, m); err != nil {
			_ = s.DeadLetter(ctx, m)
		}
	}
	return nil
}

func (s *fakeSource) DeadLetter(ctx context.Context, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, string(message))
	return nil
}

func (s *fakeSource) Requeue(ctx context.Context, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requeued = append(s.requeued, string(message))
	return nil
}

type fakeRemover struct {
	mu        sync.Mutex
	present   map[string]bool
	failing   map[string]bool
	deleted   []string
}

func (r *fakeRemover) Exists(ctx context.Context, storageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.present[storageID], nil
}

func (r *fakeRemover) Delete(ctx context.Context, storageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing[storageID] {
		return stderrors.New("access denied")
	}
	r.deleted = append(r.deleted, storageID)
	delete(r.present, storageID)
	return nil
}

func orphanMessage(t *testing.T, id string) []byte {
	t.Helper()
	b, err := json.Marshal(model.OrphanJob{StorageID: id, Kind: "raw", RecordedAt: time.Now().UTC()})
	require.NoError(t, err)
	return b
}

func TestOrphanSweeper(t *testing.T) {
	source := &fakeSource{messages: [][]byte{
		orphanMessage(t, "decks/a.pdf"),
		orphanMessage(t, "decks/gone.pdf"),
		orphanMessage(t, "decks/locked.pdf"),
		[]byte("not json"),
		orphanMessage(t, ""),
	}}
	remover := &fakeRemover{
		present: map[string]bool{"decks/a.pdf": true, "decks/locked.pdf": true},
		failing: map[string]bool{"decks/locked.pdf": true},
	}

	cfg := &config.Config{}
	cfg.Cleanup.WorkerCount = 2
	sweeper := NewOrphanSweeper(cfg, source, remover)

	require.NoError(t, sweeper.Start(context.Background()))
	sweeper.Stop()

	assert.Equal(t, []string{"decks/a.pdf"}, remover.deleted)

	require.Len(t, source.dead, 3)
	var deadIDs []string
	for _, m := range source.dead {
		var job model.OrphanJob
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			deadIDs = append(deadIDs, m)
			continue
		}
		deadIDs = append(deadIDs, job.StorageID)
	}
	assert.ElementsMatch(t, []string{"decks/locked.pdf", "not json", ""}, deadIDs)
}

// cancellingRemover stops the sweeper mid-delete.
type cancellingRemover struct {
	cancel context.CancelFunc
}

func (r *cancellingRemover) Exists(ctx context.Context, storageID string) (bool, error) {
	return true, nil
}

func (r *cancellingRemover) Delete(ctx context.Context, storageID string) error {
	r.cancel()
	return ctx.Err()
}

func TestOrphanSweeper_ShutdownRequeuesInsteadOfDeadLettering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := orphanMessage(t, "decks/slow.pdf")
	source := &fakeSource{messages: [][]byte{msg}}

	cfg := &config.Config{}
	cfg.Cleanup.WorkerCount = 1
	sweeper := NewOrphanSweeper(cfg, source, &cancellingRemover{cancel: cancel})

	require.NoError(t, sweeper.Start(ctx))
	sweeper.Stop()

	assert.Empty(t, source.dead)
	assert.Equal(t, []string{string(msg)}, source.requeued)
}
