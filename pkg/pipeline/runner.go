package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/evidence"
	"github.com/zen-systems/quillflow/pkg/search"
)

// RunOptions configures pipeline execution.
type RunOptions struct {
	Subject     string
	ContentType string

	// StageTimeout bounds each worker call (search and generation). Zero
	// leaves calls bounded only by ctx.
	StageTimeout time.Duration

	// EvidenceDir, when set, receives run.json and per-stage records under
	// EvidenceDir/<run id>.
	EvidenceDir string

	Logger func(format string, args ...any)
}

// RunResult captures pipeline outputs and run metadata. On failure Artifact
// is empty and FailedStage/Err name the cause.
type RunResult struct {
	RunID           string
	Pipeline        string
	Subject         string
	ContentType     string
	Artifact        string
	TotalStages     int
	StagesAttempted int
	StagesCompleted int
	Elapsed         time.Duration
	Stages          []StageResult
	Usage           adapter.Usage
	FailedStage     string
	Err             error
	EvidenceDir     string
}

// Succeeded reports whether every stage completed.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Err == nil && r.StagesCompleted == r.TotalStages
}

// StageResult captures execution results for a stage.
type StageResult struct {
	Name     string
	Adapter  string
	Model    string
	Search   *search.Result
	Usage    adapter.Usage
	Words    int
	Duration time.Duration
}

// Run executes the pipeline's stages in order for one subject. It stops at
// the first failing stage and returns a *StageFailure alongside a RunResult
// that carries the run metadata.
func Run(ctx context.Context, p *Pipeline, worker Worker, opts RunOptions) (*RunResult, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if worker == nil {
		return nil, fmt.Errorf("worker is required")
	}
	if strings.TrimSpace(opts.Subject) == "" {
		return nil, fmt.Errorf("subject is required")
	}
	stages, err := p.snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RunResult{
		RunID:       fmt.Sprintf("%s-%s", start.UTC().Format("20060102T150405Z"), uuid.NewString()[:8]),
		Pipeline:    p.Name,
		Subject:     opts.Subject,
		ContentType: opts.ContentType,
		TotalStages: len(stages),
	}

	var writer *evidence.Writer
	if opts.EvidenceDir != "" {
		w, err := evidence.NewWriter(opts.EvidenceDir, result.RunID)
		if err != nil {
			return nil, fmt.Errorf("prepare evidence: %w", err)
		}
		writer = w
		result.EvidenceDir = w.RunDir()
	}

	logf(opts, "run %s: %d stages for %q (%s)", result.RunID, len(stages), opts.Subject, opts.ContentType)
	rc := NewRunContext(opts.Subject, opts.ContentType)

	for i, stage := range stages {
		result.StagesAttempted = i + 1
		logf(opts, "stage %d/%d %s: started", i+1, len(stages), stage.Name)

		stageResult, record, output, err := runStage(ctx, stage, worker, rc, opts)
		record.Index = i
		if writer != nil {
			if writeErr := writer.WriteStage(record); writeErr != nil {
				logf(opts, "stage %s: write evidence: %v", stage.Name, writeErr)
			}
		}
		if err != nil {
			failure := &StageFailure{Stage: stage.Name, Index: i, Err: err}
			result.FailedStage = stage.Name
			result.Err = failure
			result.Elapsed = time.Since(start)
			logf(opts, "stage %s: failed after %s: %v", stage.Name, stageResult.Duration.Round(time.Millisecond), err)
			finishEvidence(writer, result, opts)
			return result, failure
		}

		if err := rc.Set(stage.Name, output); err != nil {
			return nil, err
		}
		result.StagesCompleted++
		result.Stages = append(result.Stages, stageResult)
		result.Usage = result.Usage.Add(stageResult.Usage)
		logf(opts, "stage %s: completed in %s (%d words)", stage.Name, stageResult.Duration.Round(time.Millisecond), stageResult.Words)
	}

	result.Artifact, _ = rc.Output(stages[len(stages)-1].Name)
	result.Elapsed = time.Since(start)
	logf(opts, "run %s: completed %d stages in %s", result.RunID, result.StagesCompleted, result.Elapsed.Round(time.Millisecond))
	finishEvidence(writer, result, opts)
	return result, nil
}

func runStage(ctx context.Context, stage *Stage, worker Worker, rc *RunContext, opts RunOptions) (StageResult, evidence.StageRecord, string, error) {
	start := time.Now()
	stageResult := StageResult{Name: stage.Name}
	record := evidence.StageRecord{
		Name:         stage.Name,
		Role:         stage.Role,
		Predecessors: stage.Predecessors(),
	}
	fail := func(err error) (StageResult, evidence.StageRecord, string, error) {
		stageResult.Duration = time.Since(start)
		record.Error = err.Error()
		record.DurationMillis = stageResult.Duration.Milliseconds()
		return stageResult, record, "", err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	data := PromptData{
		Subject:     rc.Subject(),
		ContentType: rc.ContentType(),
		Outputs:     rc.Visible(stage.After),
	}

	if stage.query != nil {
		query, err := renderTemplate(stage.query, data)
		if err != nil {
			return fail(fmt.Errorf("render search query: %w", err))
		}
		query = strings.TrimSpace(query)

		callCtx, cancel := withStageTimeout(ctx, opts.StageTimeout)
		res := worker.Search(callCtx, query)
		cancel()

		data.Search = res
		stageResult.Search = &res
		record.Search = &evidence.SearchRecord{Query: query, OK: res.OK, Reason: res.Reason}
		if !res.OK {
			logf(opts, "stage %s: search %q failed: %s", stage.Name, query, res.Reason)
			if stage.RequireSearch {
				return fail(res.Err())
			}
		}
	}

	prompt, err := buildPrompt(stage, data)
	if err != nil {
		return fail(err)
	}
	record.Prompt = truncateForEvidence(prompt, 4096)
	record.PromptHash = hashString(prompt)

	task := Task{
		Stage:    stage.Name,
		TaskType: stage.TaskType,
		Adapter:  stage.Adapter,
		Model:    stage.Model,
		System:   stage.systemPrompt(),
		Prompt:   prompt,
	}

	callCtx, cancel := withStageTimeout(ctx, opts.StageTimeout)
	resp, err := worker.Generate(callCtx, task)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()
	if err != nil {
		if timedOut {
			return fail(&adapter.GenerationError{
				Temporary: true,
				Err:       fmt.Errorf("timed out after %s: %w", opts.StageTimeout, context.DeadlineExceeded),
			})
		}
		return fail(adapter.NewGenerationError("", stage.Model, 0, err))
	}
	if resp == nil {
		return fail(ErrEmptyOutput)
	}

	stageResult.Adapter = resp.Adapter
	stageResult.Model = resp.Model
	record.Adapter = resp.Adapter
	record.Model = resp.Model
	if resp.Usage != nil {
		stageResult.Usage = *resp.Usage
		record.Usage = &evidence.UsageRecord{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	output := strings.TrimSpace(resp.Content)
	if output == "" {
		return fail(ErrEmptyOutput)
	}

	stageResult.Words = len(strings.Fields(output))
	stageResult.Duration = time.Since(start)
	record.Output = truncateForEvidence(output, 4096)
	record.OutputHash = hashString(output)
	record.DurationMillis = stageResult.Duration.Milliseconds()
	return stageResult, record, output, nil
}

func withStageTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func finishEvidence(writer *evidence.Writer, result *RunResult, opts RunOptions) {
	if writer == nil {
		return
	}
	record := evidence.RunRecord{
		ID:              result.RunID,
		Timestamp:       time.Now().UTC(),
		Pipeline:        result.Pipeline,
		Subject:         result.Subject,
		SubjectHash:     hashString(result.Subject),
		ContentType:     result.ContentType,
		Status:          "succeeded",
		TotalStages:     result.TotalStages,
		StagesAttempted: result.StagesAttempted,
		StagesCompleted: result.StagesCompleted,
		FailedStage:     result.FailedStage,
		ElapsedMillis:   result.Elapsed.Milliseconds(),
		ToolVersions:    map[string]string{"go": runtime.Version()},
	}
	if result.Err != nil {
		record.Status = "failed"
		record.Error = result.Err.Error()
	}
	if err := writer.WriteRun(record); err != nil {
		logf(opts, "run %s: write evidence: %v", result.RunID, err)
	}
}

func logf(opts RunOptions, format string, args ...any) {
	if opts.Logger != nil {
		opts.Logger(format, args...)
	}
}

func hashString(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

func truncateForEvidence(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit]
}
