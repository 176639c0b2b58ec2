package adapter

import "context"

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a request to the model and returns its text response.
	Generate(ctx context.Context, model string, req Request) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Request is a single generation call. System carries the role persona and
// is left out of the call entirely when empty.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

func (r Request) maxTokens() int64 {
	if r.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return int64(r.MaxTokens)
}

const defaultMaxTokens = 4096
