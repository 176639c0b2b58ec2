package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyOutput is reported when a worker returns blank text for a stage.
var ErrEmptyOutput = errors.New("worker returned empty output")

// ConfigurationError reports a malformed pipeline. It is only ever returned
// while a pipeline is being built or validated, never from a run.
type ConfigurationError struct {
	Stage  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Stage == "" {
		return "invalid pipeline: " + e.Reason
	}
	return fmt.Sprintf("invalid pipeline: stage %s: %s", e.Stage, e.Reason)
}

// StageFailure reports the stage that ended a run and why.
type StageFailure struct {
	Stage string
	Index int
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}
