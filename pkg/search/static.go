package search

import (
	"context"
	"fmt"
	"sync"
)

// StaticSearcher answers queries from a fixed table. Unknown queries return
// Default, or an error when Default is empty.
type StaticSearcher struct {
	Results map[string]string
	Default string
	Err     error

	mu      sync.Mutex
	queries []string
}

// Search implements Searcher.
func (s *StaticSearcher) Search(_ context.Context, query string) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.Err != nil {
		return "", &SearchError{Query: query, Err: s.Err}
	}
	if text, ok := s.Results[query]; ok {
		return text, nil
	}
	if s.Default != "" {
		return s.Default, nil
	}
	return "", &SearchError{Query: query, Err: fmt.Errorf("no results")}
}

// Queries returns the queries seen so far.
func (s *StaticSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}
