// Package blobstore retains the original uploaded documents for audit and
// reference. Storage failures never block record ingestion.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore is the storage collaborator contract: one opaque path per stored
// document.
type BlobStore interface {
	Store(ctx context.Context, profileID uuid.UUID, filename string, content io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FSStore keeps blobs on the local filesystem under root/<profile>/<name>.
type FSStore struct {
	root   string
	logger *slog.Logger
}

func NewFSStore(root string, logger *slog.Logger) *FSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSStore{root: root, logger: logger}
}

func (s *FSStore) Store(ctx context.Context, profileID uuid.UUID, filename string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, profileID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	// Prefix with a fresh UUID so repeated uploads of same-named files never
	// clobber each other.
	name := uuid.New().String() + "-" + filepath.Base(filename)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	s.logger.Debug("blob stored", "profile_id", profileID, "path", path)
	return path, nil
}

func (s *FSStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}
