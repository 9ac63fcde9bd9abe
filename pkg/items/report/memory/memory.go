package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-items/pkg/items/report"
)

// Store is an in-memory implementation of report.Store
type Store struct {
	mu           sync.RWMutex
	reports      map[string][]byte
	contentTypes map[string]string
}

// New creates a new in-memory report store
func New() *Store {
	return &Store{
		reports:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (s *Store) Put(ctx context.Context, key, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[key] = data
	s.contentTypes[key] = contentType
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.reports[key]
	if !exists {
		return nil, report.ErrReportNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// URL returns a memory:// location, served only by in-process readers.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.reports[key]; !exists {
		return "", report.ErrReportNotFound
	}
	return "memory://" + key, nil
}

// ContentType returns the content type a report was stored with.
func (s *Store) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contentTypes[key]
}
