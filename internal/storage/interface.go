package storage

import (
	"context"
	"io"
)

// Storage is a remote object store addressed by key.
type Storage interface {
	Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL is the address clients use to fetch key.
	PublicURL(key string) string
}
