package pipeline

import (
	"context"

	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/search"
)

// Task is one generation request issued by a stage.
type Task struct {
	Stage    string
	TaskType string
	Adapter  string
	Model    string
	System   string
	Prompt   string
}

// Worker is the text generation and search capability consumed by stages.
// Generate failures are *adapter.GenerationError values; any retry happens
// inside the worker. Search never fails hard: failures come back as a
// Failed result.
type Worker interface {
	Generate(ctx context.Context, task Task) (*adapter.Response, error)
	Search(ctx context.Context, query string) search.Result
}
