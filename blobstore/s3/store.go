package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealership-backend/blobstore"
	"dealership-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rs/zerolog/log"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

// ErrForeignURL is returned when a delete target does not belong to this
// store's public prefix
var ErrForeignURL = errors.New("url does not belong to this blob store")

// Store implements the blob store interface on an s3-compatible bucket
type Store struct {
	S3Client *s3.Client
	Timeout  time.Duration
	Bucket   string
	BaseURL  string
}

// New creates a new s3-backed blob store
func New(cfg *config.S3Config) (*Store, error) {
	// check for required S3 configuration
	if strings.TrimSpace(cfg.AccessKey) == "" ||
		strings.TrimSpace(cfg.KeyID) == "" ||
		strings.TrimSpace(cfg.Endpoint) == "" ||
		strings.TrimSpace(cfg.Region) == "" ||
		strings.TrimSpace(cfg.Bucket) == "" ||
		strings.TrimSpace(cfg.Timeout) == "" {
		return nil, fmt.Errorf("%w", ErrIncompleteS3Config)
	}
	s3Client := s3.New(s3.Options{
		UsePathStyle: true,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				cfg.KeyID,
				cfg.AccessKey,
				"",
			),
		),
	})

	timeoutDuration, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 timeout value: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		// Path-style public URL derived from the endpoint.
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Store{
		S3Client: s3Client,
		Timeout:  timeoutDuration,
		Bucket:   cfg.Bucket,
		BaseURL:  baseURL,
	}, nil
}

// Upload stores an image in the bucket and returns its public URL
func (s *Store) Upload(
	ctx context.Context,
	data []byte,
	filename, mimeType string,
) (string, error) {
	key := blobstore.ObjectKey(filename)

	uploader := manager.NewUploader(s.S3Client)

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			// Process error and its associated uploadID
			log.Error().
				Msg(fmt.Sprintf("multi-upload failure (upload_id: %s): %v", mu.UploadID(), mu))

			return "", &blobstore.UploadError{
				Filename: filename,
				Inner: fmt.Errorf(
					"multi-upload failure (upload_id: %s): %w",
					mu.UploadID(),
					mu,
				),
			}
		}
		// Process error generically
		log.Error().Err(err).Msg("upload failure")

		return "", &blobstore.UploadError{
			Filename: filename,
			Inner:    fmt.Errorf("upload failure: %w", err),
		}
	}
	log.Info().
		Str("location", result.Location).
		Str("key", key).
		Msg("successfully uploaded image to s3 bucket")

	return s.BaseURL + "/" + key, nil
}

// Delete removes the given URLs from the bucket best-effort. Failures are
// logged and reported per item, never raised.
func (s *Store) Delete(ctx context.Context, urls []string) []blobstore.DeleteResult {
	results := make([]blobstore.DeleteResult, 0, len(urls))
	for _, url := range urls {
		err := s.deleteOne(ctx, url)
		result := blobstore.DeleteResult{URL: url, Deleted: err == nil}
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("failed to delete image from s3")
			result.Error = err.Error()
		}
		results = append(results, result)
	}

	return results
}

func (s *Store) deleteOne(ctx context.Context, url string) error {
	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	_, err = s.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// keyFromURL maps a public URL back to its object key
func (s *Store) keyFromURL(url string) (string, error) {
	prefix := s.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}

	key := strings.TrimPrefix(url, prefix)
	if idx := strings.IndexByte(key, '?'); idx != -1 {
		key = key[:idx]
	}

	return key, nil
}
