package versions

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errClosed = errors.New("store is closed")

// MemStore is an in-memory Store, used in tests and for throwaway runs.
type MemStore struct {
	mu       sync.Mutex
	subjects map[string][]Record
	closed   bool
	now      func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{subjects: make(map[string][]Record), now: time.Now}
}

// SaveVersion implements Store.
func (s *MemStore) SaveVersion(ctx context.Context, subject, content string) (int, error) {
	if err := validSubject("save", subject); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, &StorageError{Op: "save", Subject: subject, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &StorageError{Op: "save", Subject: subject, Err: errClosed}
	}

	version := len(s.subjects[subject]) + 1
	s.subjects[subject] = append(s.subjects[subject], Record{
		Subject:     subject,
		Version:     version,
		Content:     content,
		ContentHash: ContentHash(content),
		CreatedAt:   s.now().UTC(),
		WordCount:   WordCount(content),
	})
	return version, nil
}

// History implements Store.
func (s *MemStore) History(_ context.Context, subject string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &StorageError{Op: "history", Subject: subject, Err: errClosed}
	}

	records := s.subjects[subject]
	entries := make([]Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		entries = append(entries, Entry{Version: r.Version, CreatedAt: r.CreatedAt, WordCount: r.WordCount})
	}
	return entries, nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, subject string, version int) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &StorageError{Op: "get", Subject: subject, Err: errClosed}
	}

	records := s.subjects[subject]
	if version <= 0 {
		version = len(records)
	}
	if version < 1 || version > len(records) {
		return nil, notFound(subject, version)
	}
	rec := records[version-1]
	return &rec, nil
}

// Close marks the store closed; later calls fail with a StorageError.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
