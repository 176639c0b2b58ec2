package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunRecord captures run-level metadata.
type RunRecord struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	Pipeline        string            `json:"pipeline"`
	Subject         string            `json:"subject"`
	SubjectHash     string            `json:"subject_hash"`
	ContentType     string            `json:"content_type"`
	Status          string            `json:"status"`
	TotalStages     int               `json:"total_stages"`
	StagesAttempted int               `json:"stages_attempted"`
	StagesCompleted int               `json:"stages_completed"`
	FailedStage     string            `json:"failed_stage,omitempty"`
	Error           string            `json:"error,omitempty"`
	ElapsedMillis   int64             `json:"elapsed_ms"`
	ToolVersions    map[string]string `json:"tool_versions,omitempty"`
}

// StageRecord captures evidence for a single stage.
type StageRecord struct {
	Name           string        `json:"name"`
	Index          int           `json:"index"`
	Role           string        `json:"role,omitempty"`
	Predecessors   []string      `json:"predecessors,omitempty"`
	Adapter        string        `json:"adapter,omitempty"`
	Model          string        `json:"model,omitempty"`
	Prompt         string        `json:"prompt,omitempty"`
	PromptHash     string        `json:"prompt_hash,omitempty"`
	Output         string        `json:"output,omitempty"`
	OutputHash     string        `json:"output_hash,omitempty"`
	Search         *SearchRecord `json:"search,omitempty"`
	Usage          *UsageRecord  `json:"usage,omitempty"`
	Error          string        `json:"error,omitempty"`
	DurationMillis int64         `json:"duration_ms"`
}

// SearchRecord captures the web search a stage issued.
type SearchRecord struct {
	Query  string `json:"query"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// UsageRecord mirrors adapter token usage.
type UsageRecord struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Writer writes evidence bundles to disk.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a new evidence writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(filepath.Join(runDir, "stages"), 0755); err != nil {
		return nil, err
	}

	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteRun writes run metadata to run.json.
func (w *Writer) WriteRun(record RunRecord) error {
	return writeJSON(filepath.Join(w.runDir, "run.json"), record)
}

// WriteStage writes a stage record to stages/<stage>.json.
func (w *Writer) WriteStage(record StageRecord) error {
	if record.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	path := filepath.Join(w.runDir, "stages", fmt.Sprintf("%s.json", record.Name))
	return writeJSON(path, record)
}

// ReadRun loads run.json from a run directory.
func ReadRun(runDir string) (*RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if err != nil {
		return nil, err
	}
	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ReadStage loads stages/<stage>.json from a run directory.
func ReadStage(runDir, stage string) (*StageRecord, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "stages", stage+".json"))
	if err != nil {
		return nil, err
	}
	var record StageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
