package pipeline

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/zen-systems/quillflow/pkg/search"
)

// PromptData is the data exposed to stage prompt and search templates.
type PromptData struct {
	Subject     string
	ContentType string
	Outputs     map[string]string
	Search      search.Result
}

func renderTemplate(tmpl *template.Template, data PromptData) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildPrompt renders the stage instruction and appends the expected output
// and the visible predecessor outputs, in predecessor order.
func buildPrompt(stage *Stage, data PromptData) (string, error) {
	instruction, err := renderTemplate(stage.prompt, data)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(instruction))

	if expected := strings.TrimSpace(stage.ExpectedOutput); expected != "" {
		sb.WriteString("\n\nExpected output:\n")
		sb.WriteString(expected)
	}

	if len(data.Outputs) > 0 {
		sb.WriteString("\n\n## Context")
		for _, name := range stage.After {
			text, ok := data.Outputs[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "\n\n### Output of %s\n%s", name, text)
		}
	}

	return sb.String(), nil
}
