package storage

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"
)

// MemoryObjectStorage keeps uploaded objects in memory. It backs dry runs
// of s3:// exports and tests.
type MemoryObjectStorage struct {
	// BaseURL prefixes the generated download links
	BaseURL string

	mu      sync.Mutex
	objects map[Location][]byte
}

// Ensure MemoryObjectStorage implements ObjectStorage
var _ ObjectStorage = (*MemoryObjectStorage)(nil)

// NewMemoryObjectStorage creates an empty in-memory store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[Location][]byte),
	}
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(_ context.Context, loc Location, data []byte, _ string) error {
	if loc.Key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[loc] = append([]byte(nil), data...)
	return nil
}

// GenerateDownloadURL returns a fake link to the object
func (s *MemoryObjectStorage) GenerateDownloadURL(_ context.Context, loc Location, expiresIn time.Duration) (string, time.Time, error) {
	if loc.Key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	link := s.BaseURL + "/" + loc.Bucket + "/" + loc.Key + "?expires=" + url.QueryEscape(expiresAt.Format(time.RFC3339))
	return link, expiresAt, nil
}

// Object returns the stored bytes at loc
func (s *MemoryObjectStorage) Object(loc Location) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[loc]
	return data, ok
}
