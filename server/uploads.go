package server

import (
	"context"
	"io"
	"mime/multipart"
	"sync"
	"time"

	"dealership-backend/blobstore"
	"dealership-backend/orm"
)

// uploadImages pushes all files to the blob store concurrently and builds the
// image set input for the database transaction. Uploads happen before any row
// is written, so on failure the already-stored blobs are deleted again and no
// database state has to be undone.
func (s *Server) uploadImages(
	ctx context.Context,
	files []*multipart.FileHeader,
) (*orm.ImageSetInput, error) {
	if len(files) == 0 {
		return nil, nil
	}

	urls := make([]string, len(files))
	metadata := make([]orm.ImageMetadata, len(files))
	uploadErrs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file *multipart.FileHeader) {
			defer wg.Done()

			data, err := readFileHeader(file)
			if err != nil {
				uploadErrs[i] = &blobstore.UploadError{
					Filename: file.Filename,
					Inner:    err,
				}

				return
			}

			mimeType := file.Header.Get("Content-Type")
			url, err := s.store.Upload(ctx, data, file.Filename, mimeType)
			if err != nil {
				uploadErrs[i] = err

				return
			}

			urls[i] = url
			metadata[i] = orm.ImageMetadata{
				OriginalName: file.Filename,
				MimeType:     mimeType,
				Size:         file.Size,
				UploadedAt:   time.Now(),
			}
		}(i, file)
	}
	wg.Wait()

	for _, err := range uploadErrs {
		if err != nil {
			s.discardUploads(ctx, urls)

			return nil, err
		}
	}

	return &orm.ImageSetInput{
		URLs:         urls,
		Metadata:     metadata,
		PrimaryIndex: 0,
	}, nil
}

// discardUploads removes blobs that were stored for a request that never
// committed. Best-effort, the per-item results are only logged by the store.
func (s *Server) discardUploads(ctx context.Context, urls []string) {
	stored := make([]string, 0, len(urls))
	for _, url := range urls {
		if url != "" {
			stored = append(stored, url)
		}
	}
	if len(stored) > 0 {
		s.store.Delete(ctx, stored)
	}
}

func readFileHeader(file *multipart.FileHeader) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
