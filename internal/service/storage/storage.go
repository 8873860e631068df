package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
)

// ErrNotExist is returned when a stored object is missing.
var ErrNotExist = errors.New("stored object does not exist")

// Store keeps media blobs addressed by a slash-separated relative path.
type Store interface {
	Save(ctx context.Context, path string, data []byte) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
	URL(path string) (string, error)
}

// New builds the media store selected by MEDIA_BACKEND.
func New(cfg *config.Config, logger *logger.Logger) (Store, error) {
	switch cfg.MediaBackend {
	case "", "local":
		return NewLocalStore(cfg.MediaRoot, cfg.Domain+"/media/", logger), nil
	case "s3":
		return NewS3Store(cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, logger)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}
