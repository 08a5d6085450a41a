// Package blobstore abstracts the remote object store holding vehicle
// images. Uploads are the only operation allowed to fail a request; deletes
// are advisory and report per-URL results without ever failing the caller.
package blobstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is implemented by the s3, filesystem and in-memory backends.
type Store interface {
	// Upload persists the object under a collision-resistant key and
	// returns its public URL.
	Upload(ctx context.Context, data []byte, filename, mimeType string) (string, error)
	// Delete removes the given URLs best-effort and reports per-item
	// outcomes. It never returns an overall error.
	Delete(ctx context.Context, urls []string) []DeleteResult
}

// DeleteResult reports the outcome of one advisory deletion.
type DeleteResult struct {
	URL     string `json:"url"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// UploadError marks a blob store rejection or failure during upload.
type UploadError struct {
	Filename string
	Inner    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %q: %v", e.Filename, e.Inner)
}

func (e *UploadError) Unwrap() error {
	return e.Inner
}

// ObjectKey builds a collision-resistant storage key for an uploaded image.
// Original filenames repeat across vehicles, so the key is prefixed with the
// upload time and a random component.
func ObjectKey(filename string) string {
	return fmt.Sprintf(
		"vehicle-images/%d-%s-%s",
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		sanitizeFilename(filename),
	)
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "image"
	}

	return b.String()
}
