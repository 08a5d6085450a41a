package filesystemstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dealership-backend/blobstore"

	"github.com/rs/zerolog/log"
)

// ErrForeignURL is returned when a delete target does not point into this
// store's base directory
var ErrForeignURL = errors.New("url does not belong to this blob store")

// Store implements the blob store interface on the local filesystem.
// Intended for local development without an s3 bucket.
type Store struct {
	baseDir string
}

// New creates a new filesystem-backed blob store rooted at baseDir
func New(baseDir string) (*Store, error) {
	if !filepath.IsAbs(baseDir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		baseDir = filepath.Join(wd, baseDir)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{baseDir: baseDir}, nil
}

// Upload writes the object under the base directory and returns a file URL
func (s *Store) Upload(
	_ context.Context,
	data []byte,
	filename, _ string,
) (string, error) {
	key := blobstore.ObjectKey(filename)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &blobstore.UploadError{
			Filename: filename,
			Inner:    fmt.Errorf("failed to create directory: %w", err),
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &blobstore.UploadError{
			Filename: filename,
			Inner:    fmt.Errorf("failed to write object: %w", err),
		}
	}

	return "file://" + filepath.ToSlash(path), nil
}

// Delete removes objects best-effort and reports per-item outcomes
func (s *Store) Delete(_ context.Context, urls []string) []blobstore.DeleteResult {
	results := make([]blobstore.DeleteResult, 0, len(urls))
	for _, url := range urls {
		err := s.deleteOne(url)
		result := blobstore.DeleteResult{URL: url, Deleted: err == nil}
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("failed to delete image file")
			result.Error = err.Error()
		}
		results = append(results, result)
	}

	return results
}

func (s *Store) deleteOne(url string) error {
	path := strings.TrimPrefix(url, "file://")
	path = filepath.FromSlash(path)
	if !strings.HasPrefix(path, s.baseDir) {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}

	return nil
}
