package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mediaserver/internal/logger"
)

// LocalStore writes media files below a root directory on disk.
type LocalStore struct {
	root    string
	baseURL string
	logger  *logger.Logger
}

// NewLocalStore creates a store rooted at root; URLs are baseURL + relative path.
func NewLocalStore(root, baseURL string, logger *logger.Logger) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Root returns the directory files are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// fullPath maps a relative media path into the root, rejecting escapes.
func (s *LocalStore) fullPath(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("invalid media path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Save writes data to path, creating parent directories.
func (s *LocalStore) Save(_ context.Context, rel string, data []byte) error {
	full, err := s.fullPath(rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}

	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	s.logger.Info("Saved media file %s (%d bytes)", rel, len(data))
	return nil
}

// Open returns a reader for the file at path.
func (s *LocalStore) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	full, err := s.fullPath(rel)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	return f, nil
}

// Remove deletes the file at path. A missing file is not an error.
func (s *LocalStore) Remove(_ context.Context, rel string) error {
	full, err := s.fullPath(rel)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}

// URL returns the public URL of the file at path.
func (s *LocalStore) URL(rel string) (string, error) {
	u := &url.URL{Path: strings.TrimPrefix(path.Clean("/"+rel), "/")}
	return s.baseURL + u.EscapedPath(), nil
}
