package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/wongohq/wongo/internal/interfaces"
)

// FilesystemStore keeps manuscript images under a local directory and serves
// them through the HTTP file server. Used when no S3 bucket is configured.
type FilesystemStore struct {
	baseDir string
	baseURL string
	logger  arbor.ILogger
}

// NewFilesystemStore creates a local object store rooted at baseDir.
// baseURL is the public path prefix the server mounts the directory on.
func NewFilesystemStore(baseDir, baseURL string, logger arbor.ILogger) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FilesystemStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload copies a local file into the store under key
func (s *FilesystemStore) Upload(ctx context.Context, localPath, key string) (*interfaces.StoredObject, error) {
	destPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create stored image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return nil, fmt.Errorf("failed to copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush stored image: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("Image stored on filesystem")

	return &interfaces.StoredObject{
		Key: key,
		URL: s.baseURL + "/" + key,
	}, nil
}

// Delete removes a stored image. Missing keys are not an error.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored image: %w", err)
	}
	return nil
}
