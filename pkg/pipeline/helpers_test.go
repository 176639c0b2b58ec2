package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/search"
)

// scriptedWorker answers each stage with "<stage> output" unless told
// otherwise, and records every task it sees.
type scriptedWorker struct {
	mu       sync.Mutex
	tasks    []Task
	queries  []string
	fail     map[string]error
	outputs  map[string]string
	block    map[string]bool
	searchOK bool
}

func newScriptedWorker() *scriptedWorker {
	return &scriptedWorker{
		fail:     make(map[string]error),
		outputs:  make(map[string]string),
		block:    make(map[string]bool),
		searchOK: true,
	}
}

func (w *scriptedWorker) Generate(ctx context.Context, task Task) (*adapter.Response, error) {
	w.mu.Lock()
	w.tasks = append(w.tasks, task)
	failErr := w.fail[task.Stage]
	out, hasOut := w.outputs[task.Stage]
	block := w.block[task.Stage]
	w.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failErr != nil {
		return nil, failErr
	}
	if !hasOut {
		out = task.Stage + " output"
	}
	return &adapter.Response{
		Content: out,
		Adapter: "mock",
		Model:   "mock-1",
		Usage:   &adapter.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	}, nil
}

func (w *scriptedWorker) Search(_ context.Context, query string) search.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queries = append(w.queries, query)
	if !w.searchOK {
		return search.Failed(query, "search offline")
	}
	return search.Ok(query, "results for "+query)
}

func (w *scriptedWorker) stagesSeen() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.tasks))
	for _, task := range w.tasks {
		names = append(names, task.Stage)
	}
	return names
}

func (w *scriptedWorker) task(stage string) (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, task := range w.tasks {
		if task.Stage == stage {
			return task, true
		}
	}
	return Task{}, false
}

var errProviderDown = errors.New("provider down")

func mustPipeline(name string, stages ...*Stage) *Pipeline {
	p, err := New(name, stages...)
	if err != nil {
		panic(err)
	}
	return p
}

func stage(name string, after ...string) *Stage {
	return &Stage{
		Name:   name,
		Role:   strings.ToUpper(name[:1]) + name[1:] + " Specialist",
		Prompt: "Do " + name + " for {{ .Subject }} ({{ .ContentType }})",
		After:  after,
	}
}
