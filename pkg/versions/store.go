// Package versions keeps an append-only history of generated content per
// subject. Versions start at 1 and never skip or repeat for a subject.
package versions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested version does not exist.
var ErrNotFound = errors.New("version not found")

// Store is the durable version log.
type Store interface {
	// SaveVersion appends content for subject and returns its version.
	SaveVersion(ctx context.Context, subject, content string) (int, error)
	// History lists versions for subject, newest first. It returns an empty
	// slice when the subject has none.
	History(ctx context.Context, subject string) ([]Entry, error)
	// Get returns one version. A version <= 0 selects the latest.
	Get(ctx context.Context, subject string, version int) (*Record, error)
	Close() error
}

// Record is a stored version of a subject's content.
type Record struct {
	Subject     string    `json:"subject"`
	Version     int       `json:"version"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	WordCount   int       `json:"word_count"`
}

// Entry is the summary of a version returned by History.
type Entry struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	WordCount int       `json:"word_count"`
}

// StorageError reports a failure of the underlying store.
type StorageError struct {
	Op      string
	Subject string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("version store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("version store %s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ContentHash returns the hex SHA-256 of content. It depends on content only.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// WordCount counts whitespace-separated words.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

func notFound(subject string, version int) error {
	if version <= 0 {
		return fmt.Errorf("%w: %q has no versions", ErrNotFound, subject)
	}
	return fmt.Errorf("%w: %q version %d", ErrNotFound, subject, version)
}

func validSubject(op, subject string) error {
	if strings.TrimSpace(subject) == "" {
		return &StorageError{Op: op, Err: errors.New("subject is required")}
	}
	return nil
}
