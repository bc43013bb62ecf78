// Package attachment moves prospect decks in and out of the object store.
//
// Uploads fail loudly. Deletes made on behalf of another operation (replacing
// or removing a record) are best-effort: failures are logged, optionally
// recorded on the orphan ledger, and never returned to the caller.
package attachment

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/logger"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/internal/storage"
	"prospect-tracker-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind classifies uploaded content.
type Kind string

const (
	KindRaw   Kind = "raw"
	KindImage Kind = "image"
	KindAuto  Kind = "auto"
)

// ParseKind maps a configured kind name, defaulting to raw.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage:
		return KindImage
	case KindAuto:
		return KindAuto
	default:
		return KindRaw
	}
}

// ContentType picks the stored content type for filename.
func (k Kind) ContentType(filename string) string {
	if k == KindRaw {
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// OrphanRecorder keeps track of files that could not be deleted.
type OrphanRecorder interface {
	EnqueueOrphan(ctx context.Context, job model.OrphanJob) error
}

type Manager struct {
	store   storage.Storage
	folder  string
	kind    Kind
	timeout time.Duration
	orphans OrphanRecorder
	newKey  func(folder, filename string) string
	log     zerolog.Logger
}

// NewManager builds a manager for the configured folder and kind. orphans may be nil.
func NewManager(cfg *config.Config, store storage.Storage, orphans OrphanRecorder) *Manager {
	return &Manager{
		store:   store,
		folder:  cfg.Attachments.Folder,
		kind:    ParseKind(cfg.Attachments.Kind),
		timeout: cfg.Attachments.Timeout,
		orphans: orphans,
		newKey:  objectKey,
		log:     logger.Component("attachment"),
	}
}

func objectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}

// Upload stores the spooled upload under the default folder and kind.
func (m *Manager) Upload(ctx context.Context, up model.Upload) (model.Attachment, error) {
	name := up.Filename
	if name == "" {
		name = up.LocalPath
	}
	return m.UploadFile(ctx, up.LocalPath, name, m.folder, m.kind)
}

// UploadFile pushes localPath to the store under folder and removes the local
// copy afterwards whatever the outcome. A failed removal is only logged.
func (m *Manager) UploadFile(ctx context.Context, localPath, filename, folder string, kind Kind) (model.Attachment, error) {
	defer m.removeLocal(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := m.newKey(folder, filename)

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Upload(ctx, key, f, kind.ContentType(filename)); err != nil {
		return model.Attachment{}, errors.NewUpstreamError("upload", err)
	}

	m.log.Info().Str("storage_id", key).Str("kind", string(kind)).Msg("Attachment uploaded")

	return model.Attachment{
		URL:       m.store.PublicURL(key),
		StorageID: key,
	}, nil
}

// Delete removes storageID from the store and reports failures.
func (m *Manager) Delete(ctx context.Context, storageID string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Delete(ctx, storageID); err != nil {
		return errors.NewUpstreamError("delete", err)
	}
	return nil
}

// Exists reports whether storageID is still present in the store.
func (m *Manager) Exists(ctx context.Context, storageID string) (bool, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	ok, err := m.store.Exists(ctx, storageID)
	if err != nil {
		return false, errors.NewUpstreamError("exists", err)
	}
	return ok, nil
}

// Release deletes storageID without letting a failure escape. Empty ids are a no-op.
func (m *Manager) Release(ctx context.Context, storageID string) {
	if storageID == "" {
		return
	}

	err := m.Delete(ctx, storageID)
	if err == nil {
		m.log.Info().Str("storage_id", storageID).Msg("Attachment released")
		return
	}

	m.log.Warn().Err(err).Str("storage_id", storageID).Msg("Failed to release attachment, ignoring")

	if m.orphans == nil {
		return
	}
	job := model.OrphanJob{
		StorageID:  storageID,
		Kind:       string(m.kind),
		Reason:     err.Error(),
		RecordedAt: time.Now().UTC(),
	}
	if qErr := m.orphans.EnqueueOrphan(context.WithoutCancel(ctx), job); qErr != nil {
		m.log.Error().Err(qErr).Str("storage_id", storageID).Msg("Failed to record orphaned attachment")
	}
}

func (m *Manager) removeLocal(localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		m.log.Warn().Err(err).Str("path", localPath).Msg("Failed to remove temporary upload")
	}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}
