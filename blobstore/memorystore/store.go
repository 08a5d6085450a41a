package memorystore

import (
	"context"
	"errors"
	"sync"

	"dealership-backend/blobstore"
)

// ErrObjectNotFound is returned when a delete target does not exist
var ErrObjectNotFound = errors.New("object not found")

// Store implements the blob store interface with in-memory storage.
// Used for tests and throwaway local runs.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new memory-backed blob store
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Upload stores the object in memory and returns a synthetic URL
func (s *Store) Upload(
	_ context.Context,
	data []byte,
	filename, _ string,
) (string, error) {
	url := "memory://" + blobstore.ObjectKey(filename)

	// Store a copy to prevent external modifications
	content := make([]byte, len(data))
	copy(content, data)

	s.mu.Lock()
	s.objects[url] = content
	s.mu.Unlock()

	return url, nil
}

// Delete removes objects best-effort and reports per-item outcomes
func (s *Store) Delete(_ context.Context, urls []string) []blobstore.DeleteResult {
	results := make([]blobstore.DeleteResult, 0, len(urls))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, url := range urls {
		if _, exists := s.objects[url]; !exists {
			results = append(results, blobstore.DeleteResult{
				URL:   url,
				Error: ErrObjectNotFound.Error(),
			})

			continue
		}
		delete(s.objects, url)
		results = append(results, blobstore.DeleteResult{URL: url, Deleted: true})
	}

	return results
}

// Get returns the stored object content, or false when absent
func (s *Store) Get(url string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, exists := s.objects[url]
	if !exists {
		return nil, false
	}

	result := make([]byte, len(content))
	copy(result, content)

	return result, true
}

// Len reports how many objects are currently stored
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
