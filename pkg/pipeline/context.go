package pipeline

import "fmt"

// RunContext accumulates stage outputs for a single run. Each stage's entry
// is written exactly once; it is never shared between runs.
type RunContext struct {
	subject     string
	contentType string
	outputs     map[string]string
	order       []string
}

// NewRunContext creates an empty context for one run.
func NewRunContext(subject, contentType string) *RunContext {
	return &RunContext{
		subject:     subject,
		contentType: contentType,
		outputs:     make(map[string]string),
	}
}

// Subject returns the run's subject.
func (c *RunContext) Subject() string { return c.subject }

// ContentType returns the run's content type label.
func (c *RunContext) ContentType() string { return c.contentType }

// Set records a stage's output. Writing the same stage twice is an error.
func (c *RunContext) Set(stage, text string) error {
	if _, exists := c.outputs[stage]; exists {
		return fmt.Errorf("output for stage %s already recorded", stage)
	}
	c.outputs[stage] = text
	c.order = append(c.order, stage)
	return nil
}

// Output returns the recorded output of a stage.
func (c *RunContext) Output(stage string) (string, bool) {
	text, ok := c.outputs[stage]
	return text, ok
}

// Visible returns a copy of the outputs for the given stages. Stages without
// a recorded output are left out.
func (c *RunContext) Visible(stages []string) map[string]string {
	visible := make(map[string]string, len(stages))
	for _, name := range stages {
		if text, ok := c.outputs[name]; ok {
			visible[name] = text
		}
	}
	return visible
}

// Completed returns the stages recorded so far, in write order.
func (c *RunContext) Completed() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of recorded outputs.
func (c *RunContext) Len() int { return len(c.outputs) }
