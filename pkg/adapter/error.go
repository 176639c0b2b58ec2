package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// GenerationError wraps provider, network and response failures with status
// metadata. Every error an adapter returns is a *GenerationError.
type GenerationError struct {
	Provider  string
	Model     string
	Status    int
	Temporary bool
	Err       error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return "generation error"
	}
	prefix := "generation error"
	if e.Provider != "" {
		prefix = e.Provider + " generation error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s (status=%d)", prefix, e.Status)
}

func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewGenerationError wraps err unless it already is a *GenerationError.
func NewGenerationError(provider, model string, status int, err error) error {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{
		Provider: provider,
		Model:    model,
		Status:   status,
		Err:      err,
	}
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		if genErr.Temporary {
			return true
		}
		if genErr.Status == http.StatusTooManyRequests || (genErr.Status >= 500 && genErr.Status <= 599) {
			return true
		}
	}
	return false
}
