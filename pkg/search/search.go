// Package search provides the web search capability used by research and
// fact-check stages.
package search

import (
	"context"
	"errors"
	"fmt"
)

// Searcher runs a web search and returns a textual digest of the results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Result is the outcome of a search as seen by a stage: either Ok with text
// or Failed with a reason. A failed search is never passed off as content.
type Result struct {
	OK     bool
	Text   string
	Reason string
	Query  string
}

// Ok builds a successful result.
func Ok(query, text string) Result {
	return Result{OK: true, Text: text, Query: query}
}

// Failed builds a failed result.
func Failed(query, reason string) Result {
	return Result{OK: false, Reason: reason, Query: query}
}

// Err returns the failure as a *SearchError, or nil when the search succeeded.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &SearchError{Query: r.Query, Err: errors.New(r.Reason)}
}

// SearchError reports a failed search.
type SearchError struct {
	Query  string
	Status int
	Err    error
}

func (e *SearchError) Error() string {
	if e == nil {
		return "search error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("search %q failed (status=%d): %v", e.Query, e.Status, e.Err)
	}
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Run calls s and folds any error into a Failed result.
func Run(ctx context.Context, s Searcher, query string) Result {
	if s == nil {
		return Failed(query, "search not configured")
	}
	text, err := s.Search(ctx, query)
	if err != nil {
		return Failed(query, err.Error())
	}
	return Ok(query, text)
}
