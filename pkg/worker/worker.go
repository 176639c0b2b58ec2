// Package worker routes pipeline tasks to LLM adapters and web search. It
// owns retry and fallback, so the executor only ever sees the final outcome
// of a call.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/config"
	"github.com/zen-systems/quillflow/pkg/pipeline"
	"github.com/zen-systems/quillflow/pkg/search"
)

// Target is a resolved adapter and model for one call.
type Target struct {
	Adapter string
	Model   string
}

func (t Target) String() string {
	return t.Adapter + "/" + t.Model
}

// Worker implements pipeline.Worker over a set of adapters.
type Worker struct {
	adapters  map[string]adapter.Adapter
	routing   *config.RoutingConfig
	aliases   *config.ModelAliases
	searcher  search.Searcher
	maxTokens int
	logger    func(format string, args ...any)
}

var _ pipeline.Worker = (*Worker)(nil)

// Option configures a Worker.
type Option func(*Worker)

// WithRouting sets the task-type routing, retry and fallback policy.
func WithRouting(cfg *config.RoutingConfig) Option {
	return func(w *Worker) { w.routing = cfg }
}

// WithAliases resolves model aliases in stage and routing targets.
func WithAliases(aliases *config.ModelAliases) Option {
	return func(w *Worker) { w.aliases = aliases }
}

// WithSearcher sets the web search backend. Without one every search
// returns a Failed result.
func WithSearcher(s search.Searcher) Option {
	return func(w *Worker) { w.searcher = s }
}

// WithMaxTokens bounds the completion length of each call.
func WithMaxTokens(n int) Option {
	return func(w *Worker) { w.maxTokens = n }
}

// WithLogger sets a printf-style logger for retries and fallbacks.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(w *Worker) { w.logger = logger }
}

// New creates a worker. At least one adapter is required.
func New(adapters []adapter.Adapter, opts ...Option) (*Worker, error) {
	w := &Worker{adapters: make(map[string]adapter.Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		w.adapters[a.Name()] = a
	}
	if len(w.adapters) == 0 {
		return nil, errors.New("worker: at least one adapter is required")
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.routing == nil {
		w.routing = config.DefaultRoutingConfig()
	}
	return w, nil
}

// Adapters returns the registered adapter names, sorted.
func (w *Worker) Adapters() []string {
	names := make([]string, 0, len(w.adapters))
	for name := range w.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the adapter and model for a task. An explicit stage adapter
// wins, then the provider of an explicit model, then task-type routing. A
// routed adapter that is not registered falls back to the only registered
// adapter when there is exactly one.
func (w *Worker) Resolve(task pipeline.Task) (Target, error) {
	model := w.aliases.Resolve(task.Model)

	if task.Adapter != "" {
		if _, ok := w.adapters[task.Adapter]; !ok {
			return Target{}, fmt.Errorf("adapter %s not configured", task.Adapter)
		}
		return w.withModel(Target{Adapter: task.Adapter, Model: model}), nil
	}

	if model != "" {
		if provider := w.aliases.ProviderForModel(model); provider != "" {
			if _, ok := w.adapters[provider]; ok {
				return Target{Adapter: provider, Model: model}, nil
			}
		}
	}

	route := w.routing.Route(task.TaskType)
	target := Target{Adapter: route.Adapter, Model: model}
	if target.Model == "" {
		target.Model = w.aliases.Resolve(route.Model)
	}
	if _, ok := w.adapters[target.Adapter]; ok {
		return w.withModel(target), nil
	}

	if len(w.adapters) == 1 {
		for name, a := range w.adapters {
			only := Target{Adapter: name}
			if supports(a, target.Model) {
				only.Model = target.Model
			}
			return w.withModel(only), nil
		}
	}
	return Target{}, fmt.Errorf("adapter %s not configured (available: %v)", route.Adapter, w.Adapters())
}

func (w *Worker) withModel(t Target) Target {
	if t.Model != "" {
		return t
	}
	if models := w.adapters[t.Adapter].Models(); len(models) > 0 {
		t.Model = models[0]
	}
	return t
}

func supports(a adapter.Adapter, model string) bool {
	for _, m := range a.Models() {
		if m == model {
			return true
		}
	}
	return false
}

// Generate implements pipeline.Worker.
func (w *Worker) Generate(ctx context.Context, task pipeline.Task) (*adapter.Response, error) {
	target, err := w.Resolve(task)
	if err != nil {
		return nil, &adapter.GenerationError{Model: task.Model, Err: err}
	}
	req := adapter.Request{System: task.System, Prompt: task.Prompt, MaxTokens: w.maxTokens}
	return w.call(ctx, task.Stage, target, req)
}

// Search implements pipeline.Worker.
func (w *Worker) Search(ctx context.Context, query string) search.Result {
	return search.Run(ctx, w.searcher, query)
}

func (w *Worker) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger(format, args...)
	}
}
