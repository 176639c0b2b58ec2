package pipeline

import "text/template"

// Stage represents a single step in a pipeline. A stage only ever sees the
// outputs of the stages listed in After.
type Stage struct {
	Name           string   `yaml:"name"`
	Role           string   `yaml:"role"`
	Goal           string   `yaml:"goal,omitempty"`
	Backstory      string   `yaml:"backstory,omitempty"`
	TaskType       string   `yaml:"task_type,omitempty"`
	Adapter        string   `yaml:"adapter,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	Prompt         string   `yaml:"prompt"`
	ExpectedOutput string   `yaml:"expected_output,omitempty"`
	After          []string `yaml:"after,omitempty"`
	Search         string   `yaml:"search,omitempty"`
	RequireSearch  bool     `yaml:"require_search,omitempty"`

	prompt *template.Template
	query  *template.Template
}

// Predecessors returns a copy of the stage's declared predecessors.
func (s *Stage) Predecessors() []string {
	return append([]string(nil), s.After...)
}

// systemPrompt folds the role persona into a single system message.
func (s *Stage) systemPrompt() string {
	if s.Role == "" && s.Backstory == "" && s.Goal == "" {
		return ""
	}
	var out string
	if s.Role != "" {
		out = "You are " + s.Role + "."
	}
	if s.Backstory != "" {
		out = joinNonEmpty(out, s.Backstory)
	}
	if s.Goal != "" {
		out = joinNonEmpty(out, "Your goal: "+s.Goal)
	}
	return out
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}
